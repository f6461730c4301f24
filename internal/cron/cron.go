package cron

import (
	"context"
	"os"
	"sync"

	cronv3 "github.com/robfig/cron/v3"

	"github.com/customeros/metricsrelay/interfaces"
	cron_config "github.com/customeros/metricsrelay/internal/cron/config"
	"github.com/customeros/metricsrelay/internal/logger"
	"github.com/customeros/metricsrelay/internal/tracing"
)

const (
	// GroupAuthCache is the group for auth cache maintenance jobs
	GroupAuthCache = "auth_cache"

	JobHeartbeat      = "heartbeat"
	JobAuthCachePurge = "auth_cache_purge"
)

// LOCK MANAGEMENT
var jobLocks = struct {
	sync.Mutex
	locks map[string]*sync.Mutex
}{
	locks: map[string]*sync.Mutex{
		GroupAuthCache: new(sync.Mutex),
	},
}

type CronManager struct {
	cfg       *cron_config.Config
	log       logger.Logger
	cron      *cronv3.Cron
	stopCh    chan struct{}
	stopOnce  sync.Once
	jobIDs    map[string]cronv3.EntryID
	authCache interfaces.AuthCache
}

func NewCronManager(cfg *cron_config.Config, log logger.Logger, authCache interfaces.AuthCache) *CronManager {
	return &CronManager{
		cfg:       cfg,
		log:       log,
		stopCh:    make(chan struct{}),
		jobIDs:    make(map[string]cronv3.EntryID),
		authCache: authCache,
	}
}

// Stop gracefully stops the cron manager
func (cm *CronManager) Stop() {
	cm.stopOnce.Do(func() {
		if cm.cron != nil {
			cm.log.Info("Stopping cron manager")
			ctx := cm.cron.Stop()
			// Wait for jobs to finish
			<-ctx.Done()
		}
		close(cm.stopCh)
	})
}

// registerJobs adds all cron jobs to the scheduler
func (cm *CronManager) registerJobs(c *cronv3.Cron) error {
	// Register heartbeat job
	if cm.cfg.CronScheduleHeartbeat != "" {
		podName := os.Getenv("POD_NAME")
		if podName == "" {
			podName = "local"
		}
		id, err := c.AddFunc(cm.cfg.CronScheduleHeartbeat, func() {
			defer tracing.RecoverAndLogToJaeger(cm.log)
			cm.log.Infof("Cron heartbeat from pod: %s, auth cache entries: %d", podName, cm.authCache.Len())
		})
		if err != nil {
			return err
		}
		cm.jobIDs[JobHeartbeat] = id
		cm.log.Infof("Registered heartbeat job with schedule: %s", cm.cfg.CronScheduleHeartbeat)
	}

	// Drop expired auth cache entries so idle identities do not hold capacity
	if cm.cfg.CronScheduleAuthCachePurge != "" {
		id, err := c.AddFunc(cm.cfg.CronScheduleAuthCachePurge, func() {
			defer tracing.RecoverAndLogToJaeger(cm.log)
			jobLocks.locks[GroupAuthCache].Lock()
			defer jobLocks.locks[GroupAuthCache].Unlock()
			cm.purgeAuthCache()
		})
		if err != nil {
			return err
		}
		cm.jobIDs[JobAuthCachePurge] = id
		cm.log.Infof("Registered auth cache purge job with schedule: %s", cm.cfg.CronScheduleAuthCachePurge)
	}

	return nil
}

// StartCron initializes and starts the cron scheduler
func (cm *CronManager) StartCron() error {
	cm.log.Info("Starting cron manager")
	// Create a new cron with seconds field enabled and panic recovery
	cronOptions := []cronv3.Option{
		cronv3.WithSeconds(),
		cronv3.WithChain(
			cronv3.SkipIfStillRunning(cronv3.DefaultLogger), // Skip if still running
			cronv3.Recover(cronv3.DefaultLogger),            // Default recovery as backup
		),
	}
	c := cronv3.New(cronOptions...)
	if err := cm.registerJobs(c); err != nil {
		return err
	}
	c.Start()
	cm.cron = c
	return nil
}

func (cm *CronManager) purgeAuthCache() int {
	span, _ := tracing.StartTracerSpan(context.Background(), "CronManager.purgeAuthCache")
	defer span.Finish()
	tracing.TagComponentCronJob(span)

	removed := cm.authCache.Purge()
	span.LogKV("result.removed", removed, "result.remaining", cm.authCache.Len())
	if removed > 0 {
		cm.log.Debugf("Purged %d expired auth cache entries", removed)
	}
	return removed
}
