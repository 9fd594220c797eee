package service

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/zeebo/blake3"

	"eodd/internal/events"
	"eodd/internal/taskqueue"
	"eodd/pkg/types"
)

// Login states reported in types.LoginStatus.
const (
	LoginPending   = "pending"
	LoginOK        = "ok"
	LoginExists    = "exists"
	LoginFailed    = "failed"
	LoginCancelled = "cancelled"
)

const userKeyPrefix = "user:"

type loginJob struct {
	Username string
}

// LoginOutcome is the value of a finished login task.
type LoginOutcome struct {
	Username string `json:"username"`
	Success  bool   `json:"success"`
	// Digest is the stored blake3 digest of the username; empty when the
	// name was already registered.
	Digest string `json:"digest,omitempty"`
}

// Login queues a background job that registers username in the
// preferences store. It returns the task id at once; the result is
// published to observers as LoginResult. A name already on record yields
// success=false.
func (s *Service) Login(username string) (string, error) {
	name := strings.TrimSpace(username)
	if name == "" {
		return "", ErrEmptyUsername
	}
	if s.isClosed() {
		return "", ErrClosed
	}
	// Holding mu across Submit orders the pending status before the
	// completion callback, which also takes mu.
	s.mu.Lock()
	id, err := s.queue.Submit(loginJob{Username: name}, taskqueue.OnComplete(func(r taskqueue.Result) {
		s.onLoginDone(name, r)
	}))
	if err == nil {
		s.login = types.LoginStatus{State: LoginPending, Username: name, TaskID: id}
	}
	s.mu.Unlock()
	if err != nil {
		return "", err
	}
	s.log.Debug().Str("task_id", id).Str("username", name).Msg("login queued")
	return id, nil
}

func (s *Service) runTask(ctx context.Context, payload any) (any, error) {
	switch job := payload.(type) {
	case loginJob:
		return s.runLogin(ctx, job)
	default:
		return nil, fmt.Errorf("unknown task payload %T", payload)
	}
}

func (s *Service) runLogin(ctx context.Context, job loginJob) (any, error) {
	key := userKeyPrefix + job.Username
	if _, ok := s.store.Get(ctx, key); ok {
		return LoginOutcome{Username: job.Username}, nil
	}
	if err := s.sleep(ctx, s.cfg.LoginDelay); err != nil {
		return nil, err
	}
	sum := blake3.Sum256([]byte(job.Username))
	digest := hex.EncodeToString(sum[:])
	if err := s.store.Set(ctx, key, digest); err != nil {
		return nil, fmt.Errorf("record username: %w", err)
	}
	return LoginOutcome{Username: job.Username, Success: true, Digest: digest}, nil
}

func (s *Service) onLoginDone(name string, r taskqueue.Result) {
	st := types.LoginStatus{Username: name, TaskID: r.ID}
	publish, success := true, false
	switch r.Status {
	case taskqueue.StatusSucceeded:
		out, _ := r.Value.(LoginOutcome)
		success = out.Success
		st.State = LoginExists
		if success {
			st.State = LoginOK
		}
	case taskqueue.StatusCancelled:
		st.State = LoginCancelled
		publish = false
	default:
		st.State = LoginFailed
		s.log.Warn().Str("task_id", r.ID).Str("username", name).Str("error", r.Err).Msg("login failed")
	}
	loginsTotal.WithLabelValues(st.State).Inc()

	s.mu.Lock()
	// only the latest attempt is reported
	if s.login.TaskID == r.ID {
		s.login = st
	}
	s.mu.Unlock()

	if publish {
		s.emit(events.NewLoginResult(success, name))
	}
}

// sleep waits d on the service clock or until ctx is done.
func (s *Service) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := s.clock.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
