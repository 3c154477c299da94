package workerpool

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var errFailed = errors.New("job failed")

func Test_RunJobs(t *testing.T) {
	pool := New(5)

	var jobs []Job
	var completed int32
	for i := 0; i < 15; i++ {
		jobs = append(jobs, func() error {
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt32(&completed, 1)
			return nil
		})
	}

	pool.Add(jobs)
	require.NoError(t, pool.Wait())
	require.EqualValues(t, len(jobs), completed, "expected all jobs to be completed")
}

func Test_StopWait(t *testing.T) {
	pool := New(2)

	var jobs []Job
	for i := 0; i < 15; i++ {
		jobs = append(jobs, func() error {
			time.Sleep(50 * time.Millisecond)
			return nil
		})
	}

	pool.Add(jobs)
	<-time.After(10 * time.Millisecond)
	pool.Stop()
	pool.Wait()
}

func Test_Errors(t *testing.T) {
	pool := New(3)

	var jobs []Job
	for i := 0; i < 6; i++ {
		i := i
		jobs = append(jobs, func() error {
			if i%2 == 0 {
				return errFailed
			}
			return nil
		})
	}

	pool.Add(jobs)
	err := pool.Wait()
	require.Error(t, err)
}
