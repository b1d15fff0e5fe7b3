package executor

import "time"

// PollPolicy bounds any async-job-style external call: check every Interval,
// give up MaxWait after polling starts.
type PollPolicy struct {
	Interval time.Duration
	MaxWait  time.Duration
}

// DefaultPollPolicy matches the Redash job cadence: 1s between checks,
// 30s overall deadline.
var DefaultPollPolicy = PollPolicy{
	Interval: 1 * time.Second,
	MaxWait:  30 * time.Second,
}

func (p PollPolicy) withDefaults() PollPolicy {
	if p.Interval <= 0 {
		p.Interval = DefaultPollPolicy.Interval
	}
	if p.MaxWait <= 0 {
		p.MaxWait = DefaultPollPolicy.MaxWait
	}
	return p
}
