package executor

import (
	"context"
	"crypto/md5"
	"fmt"
	"log"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/rachit-keshari-2003312/third-eye-project/pkg/redash"
)

// ErrorKind classifies executor failures.
type ErrorKind string

const (
	KindFailed    ErrorKind = "failed"    // job reported status 4
	KindTimeout   ErrorKind = "timeout"   // no terminal status before the deadline
	KindCanceled  ErrorKind = "canceled"  // caller context canceled mid-poll
	KindTransport ErrorKind = "transport" // create/refresh/poll/fetch call failed
)

// ExecError is the structured failure of one execution. The originating
// query is always carried so it is never silently dropped.
type ExecError struct {
	Kind    ErrorKind
	Message string
	Query   string
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("query execution %s: %s", e.Kind, e.Message)
}

// Executor runs ad-hoc SQL through the Redash create → refresh → poll →
// results → delete protocol. The temporary query object is deleted exactly
// once on every exit path; delete failures are logged, never surfaced.
type Executor struct {
	client      *redash.Client
	policy      PollPolicy
	logger      *log.Logger
	resultCache *cache.Cache
}

func New(client *redash.Client, policy PollPolicy, resultCacheTTL time.Duration, logger *log.Logger) *Executor {
	e := &Executor{
		client: client,
		policy: policy.withDefaults(),
		logger: logger,
	}
	if resultCacheTTL > 0 {
		e.resultCache = cache.New(resultCacheTTL, 10*time.Minute)
	}
	return e
}

// Execute runs sql against the data source and returns its rows. Errors are
// always *ExecError.
func (e *Executor) Execute(ctx context.Context, dataSourceID int, sql string) (*redash.ResultData, error) {
	cacheKey := resultCacheKey(dataSourceID, sql)
	if e.resultCache != nil {
		if x, found := e.resultCache.Get(cacheKey); found {
			e.logger.Printf("[EXECUTOR] Result cache hit for data source %d", dataSourceID)
			return x.(*redash.ResultData), nil
		}
	}

	// CREATE: one temporary named query per execution.
	name := fmt.Sprintf("Ad-hoc query %d", time.Now().Unix())
	query, err := e.client.CreateQuery(ctx, dataSourceID, name, sql)
	if err != nil {
		return nil, &ExecError{Kind: KindTransport, Message: fmt.Sprintf("create query: %v", err), Query: sql}
	}
	defer e.cleanup(ctx, query.ID)

	// RUN: trigger one asynchronous execution.
	job, err := e.client.RefreshQuery(ctx, query.ID)
	if err != nil {
		return nil, &ExecError{Kind: KindTransport, Message: fmt.Sprintf("refresh query: %v", err), Query: sql}
	}

	data, execErr := e.poll(ctx, query.ID, job.ID, sql)
	if execErr != nil {
		return nil, execErr
	}

	if e.resultCache != nil {
		e.resultCache.Set(cacheKey, data, cache.DefaultExpiration)
	}
	return data, nil
}

// poll watches the job until a terminal status or the deadline, measured
// from poll start.
func (e *Executor) poll(ctx context.Context, queryID int, jobID, sql string) (*redash.ResultData, *ExecError) {
	deadline := time.Now().Add(e.policy.MaxWait)

	for time.Now().Before(deadline) {
		job, err := e.client.GetJob(ctx, jobID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, &ExecError{Kind: KindCanceled, Message: ctx.Err().Error(), Query: sql}
			}
			return nil, &ExecError{Kind: KindTransport, Message: fmt.Sprintf("poll job: %v", err), Query: sql}
		}

		switch job.Status {
		case redash.JobStatusSuccess:
			result, err := e.client.GetQueryResults(ctx, queryID)
			if err != nil {
				return nil, &ExecError{Kind: KindTransport, Message: fmt.Sprintf("fetch results: %v", err), Query: sql}
			}
			e.logger.Printf("[EXECUTOR] Query %d succeeded, %d rows", queryID, len(result.Data.Rows))
			return &result.Data, nil
		case redash.JobStatusFailed:
			message := job.Error
			if message == "" {
				message = "Unknown error"
			}
			return nil, &ExecError{Kind: KindFailed, Message: message, Query: sql}
		}

		select {
		case <-ctx.Done():
			return nil, &ExecError{Kind: KindCanceled, Message: ctx.Err().Error(), Query: sql}
		case <-time.After(e.policy.Interval):
		}
	}

	return nil, &ExecError{Kind: KindTimeout, Message: "query execution timeout", Query: sql}
}

// cleanup deletes the temporary query. It runs on every exit path, detached
// from the caller's cancellation so a client disconnect still cleans up.
func (e *Executor) cleanup(ctx context.Context, queryID int) {
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if err := e.client.DeleteQuery(cleanupCtx, queryID); err != nil {
		e.logger.Printf("[EXECUTOR] Failed to delete temporary query %d: %v", queryID, err)
	}
}

func resultCacheKey(dataSourceID int, sql string) string {
	return fmt.Sprintf("%x", md5.Sum([]byte(fmt.Sprintf("%d:%s", dataSourceID, sql))))
}
