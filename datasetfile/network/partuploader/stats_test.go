package partuploader

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStats_Record(t *testing.T) {
	stats := NewStats()
	assert.Zero(t, stats.AveragePartTime())

	var wg sync.WaitGroup
	for i := 1; i <= 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			stats.Record(time.Duration(i)*time.Second, 10*i)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(4), stats.FinishedCount())
	assert.Equal(t, int64(100), stats.UploadedBytes())
	assert.Equal(t, 2500*time.Millisecond, stats.AveragePartTime())
}
