package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// ==================== SyncGuard 同步互斥守卫 ====================

// SyncGuard 同步任务守卫
// 同一类型的同步同一时刻只允许一个在执行，
// 避免手动触发与定时任务并发写入同一批数据
type SyncGuard struct {
	entries sync.Map // key -> *guardEntry
}

// guardEntry 守卫条目
type guardEntry struct {
	mu        sync.Mutex
	running   bool
	startedAt time.Time
}

// 全局守卫实例
var globalGuard = &SyncGuard{}

// GetGuard 获取全局守卫
func GetGuard() *SyncGuard {
	return globalGuard
}

// ==================== 同步类型 ====================

// SyncType 同步类型
type SyncType string

const (
	SyncTypeReviews   SyncType = "reviews"
	SyncTypeLocations SyncType = "locations"
)

// ==================== 获取/释放 ====================

// AcquireResult 获取结果
type AcquireResult struct {
	Acquired bool          // 是否获取成功
	Running  time.Duration // 已运行时长（获取失败时有效）
}

// TryAcquire 尝试获取同步锁
// 获取成功后必须调用 Release 释放
func (g *SyncGuard) TryAcquire(syncType SyncType) AcquireResult {
	actual, _ := g.entries.LoadOrStore(string(syncType), &guardEntry{})
	entry := actual.(*guardEntry)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.running {
		return AcquireResult{
			Acquired: false,
			Running:  time.Since(entry.startedAt),
		}
	}

	entry.running = true
	entry.startedAt = time.Now()
	return AcquireResult{Acquired: true}
}

// Release 释放同步锁
func (g *SyncGuard) Release(syncType SyncType) {
	actual, ok := g.entries.Load(string(syncType))
	if !ok {
		return
	}

	entry := actual.(*guardEntry)
	entry.mu.Lock()
	defer entry.mu.Unlock()
	entry.running = false
}

// IsRunning 查询同步是否执行中
func (g *SyncGuard) IsRunning(syncType SyncType) bool {
	actual, ok := g.entries.Load(string(syncType))
	if !ok {
		return false
	}

	entry := actual.(*guardEntry)
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.running
}

// ==================== Gin 中间件 ====================

// SyncInProgress 同步互斥中间件
// 同步执行中时直接拒绝新的触发请求
//
// 使用示例:
//
//	router.POST("/api/sync/reviews",
//	    middleware.SyncInProgress(middleware.SyncTypeReviews),
//	    controller.SyncReviews,
//	)
func SyncInProgress(syncType SyncType) gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetGuard().IsRunning(syncType) {
			c.JSON(http.StatusConflict, gin.H{
				"code":    409,
				"message": "同步任务正在执行中，请稍后再试",
				"data": gin.H{
					"sync_type": syncType,
				},
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
