package stdio

import (
	"bytes"
	"sync/atomic"

	"github.com/apex/log"
	"github.com/juju/ratelimit"
)

// KernelLog receives messages sent with Klog and records each one as a log
// entry. When a rate is configured, messages arriving faster than it allows
// are dropped whole rather than cut short.
type KernelLog struct {
	bucket  *ratelimit.Bucket
	dropped atomic.Int64
}

// NewKernelLog returns a kernel log accepting at most bytesPerSecond bytes
// every second. Zero or a negative value disables the limit. The bucket holds
// at least maxMessage bytes so that a message of the largest size can pass.
func NewKernelLog(bytesPerSecond int64, maxMessage int) *KernelLog {
	k := &KernelLog{}
	if bytesPerSecond > 0 {
		k.bucket = ratelimit.NewBucketWithRate(float64(bytesPerSecond), max(bytesPerSecond, int64(maxMessage)))
	}
	return k
}

// Write logs p as a single message. It always reports the whole message as
// written, even when it was dropped.
func (k *KernelLog) Write(p []byte) (int, error) {
	if k.bucket != nil && len(p) > 0 {
		if _, ok := k.bucket.TakeMaxDuration(int64(len(p)), 0); !ok {
			k.dropped.Add(1)
			return len(p), nil
		}
	}
	log.WithField("source", "klog").Info(string(bytes.TrimRight(p, "\n")))
	return len(p), nil
}

// Dropped returns how many messages were discarded by the rate limit.
func (k *KernelLog) Dropped() int64 {
	return k.dropped.Load()
}
