package task

import (
	"context"
	"log"
	"sync"
	"time"

	"gmb_connect_v1_202601/internal/middleware"
	"gmb_connect_v1_202601/internal/model"
	"gmb_connect_v1_202601/internal/service"

	"github.com/robfig/cron/v3"
)

// ==================== ReviewSyncTask 评价定时同步任务 ====================

// 同步频率对应的执行间隔
var frequencyIntervals = map[string]time.Duration{
	model.FrequencyHourly:        time.Hour,
	model.FrequencyTwiceDaily:    12 * time.Hour,
	model.FrequencyDaily:         24 * time.Hour,
	model.FrequencyWeekly:        7 * 24 * time.Hour,
	model.FrequencyEveryTwoWeeks: 14 * 24 * time.Hour,
	model.FrequencyMonthly:       28 * 24 * time.Hour,
}

// FrequencyInterval 获取频率对应的间隔，未知频率回退为每天一次
func FrequencyInterval(frequency string) time.Duration {
	if interval, ok := frequencyIntervals[frequency]; ok {
		return interval
	}
	return 24 * time.Hour
}

// ReviewSyncTask 按设置的频率定时拉取评价
// 实现 service.Rescheduler，频率变更后由 SettingsService 回调重建调度
type ReviewSyncTask struct {
	reviewService   *service.ReviewService
	settingsService *service.SettingsService
	cron            *cron.Cron

	mu        sync.Mutex
	entryID   cron.EntryID
	frequency string
	timeout   time.Duration
}

// NewReviewSyncTask 创建评价同步任务
func NewReviewSyncTask(reviewService *service.ReviewService, settingsService *service.SettingsService) *ReviewSyncTask {
	return &ReviewSyncTask{
		reviewService:   reviewService,
		settingsService: settingsService,
		cron:            cron.New(cron.WithSeconds()), // 支持秒级控制
		timeout:         10 * time.Minute,
	}
}

// Start 启动定时任务
// 调度间隔从评价设置中读取，读取失败时按每天一次兜底
func (t *ReviewSyncTask) Start() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	settings, err := t.settingsService.GetReviewSettings(ctx)
	cancel()

	frequency := model.FrequencyDaily
	if err != nil {
		log.Printf("[Cron] 评价设置读取失败，使用默认频率: %v", err)
	} else {
		frequency = settings.UpdateFrequency
	}

	if err := t.schedule(frequency); err != nil {
		return err
	}

	t.cron.Start()
	log.Printf("[Cron] 评价同步任务已启动 (频率: %s, 间隔: %s)", frequency, FrequencyInterval(frequency))
	return nil
}

// Stop 停止定时任务
func (t *ReviewSyncTask) Stop() {
	stopCtx := t.cron.Stop()
	<-stopCtx.Done()
	log.Println("[Cron] 评价同步任务已停止")
}

// Reschedule 按新频率重建调度
// 实现 service.Rescheduler
func (t *ReviewSyncTask) Reschedule(frequency string) error {
	if err := t.schedule(frequency); err != nil {
		return err
	}
	log.Printf("[Cron] 评价同步频率已调整为 %s (间隔: %s)", frequency, FrequencyInterval(frequency))
	return nil
}

// schedule 注册调度条目，替换旧条目
func (t *ReviewSyncTask) schedule(frequency string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	interval := FrequencyInterval(frequency)

	entryID, err := t.cron.AddFunc("@every "+interval.String(), t.runJob)
	if err != nil {
		return err
	}

	// 先注册新条目再移除旧条目，避免出现无调度空窗
	if t.entryID != 0 {
		t.cron.Remove(t.entryID)
	}
	t.entryID = entryID
	t.frequency = frequency
	return nil
}

// runJob 执行一轮评价同步
func (t *ReviewSyncTask) runJob() {
	// 手动触发的同步执行中时跳过本轮
	guard := middleware.GetGuard()
	acquired := guard.TryAcquire(middleware.SyncTypeReviews)
	if !acquired.Acquired {
		log.Printf("[Cron] 评价同步执行中 (已运行 %s)，跳过本轮", acquired.Running.Round(time.Second))
		return
	}
	defer guard.Release(middleware.SyncTypeReviews)

	ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
	defer cancel()

	log.Println("[Cron] 开始执行评价定时同步...")

	result, err := t.reviewService.SyncReviews(ctx, nil)
	if err != nil {
		log.Printf("[Cron] 评价定时同步失败: %v", err)
		return
	}

	log.Printf("[Cron] 评价定时同步完成: 共 %d 条，新增 %d，更新 %d，跳过 %d",
		result.Total, result.Created, result.Updated, result.Skipped)
}
