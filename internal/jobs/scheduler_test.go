package jobs

import (
	"sync"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestStopDrainsRunningJob(t *testing.T) {
	s := &Scheduler{cron: cron.New(cron.WithSeconds()), log: zerolog.Nop()}

	var once sync.Once
	started := make(chan struct{})
	finished := make(chan struct{})
	_, err := s.cron.AddFunc("* * * * * *", func() {
		once.Do(func() {
			close(started)
			time.Sleep(300 * time.Millisecond)
			close(finished)
		})
	})
	require.NoError(t, err)

	s.cron.Start()
	<-started
	s.Stop()

	select {
	case <-finished:
	default:
		t.Fatal("Stop returned while a job was still running")
	}
}
