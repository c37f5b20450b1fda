// Package pipeline implements the Order Pipeline Coordinator (C8): it
// splits user-visible latency from heavy processing via a short-request +
// background-task handoff. The short request runs C3→C4 (normalize, create
// the pending order, write its items); the background task runs
// C5→C6→C9→C7 (render, synthesize and upload, store the summary, push)
// (§4.8).
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/ordering-helper/backend/cart"
	"github.com/ordering-helper/backend/logger"
	"github.com/ordering-helper/backend/models"
	"github.com/ordering-helper/backend/orders"
	"github.com/ordering-helper/backend/pkg/errors"
	"github.com/ordering-helper/backend/push"
	"github.com/ordering-helper/backend/store"
	"github.com/ordering-helper/backend/summary"
	"github.com/ordering-helper/backend/translate"
	"github.com/ordering-helper/backend/users"
	"github.com/ordering-helper/backend/voice"
)

// taskDeadline bounds the background pipeline (§5: "background task has a
// 5 min deadline").
const taskDeadline = 5 * time.Minute

// SubmitRequest is the caller-agnostic shape the coordinator accepts after
// the HTTP edge (C10) has picked a submission-dialect adapter.
type SubmitRequest struct {
	StoreRef   string // raw store key, resolved via C1
	LineUserID string // may be empty: resolveUser creates a guest
	Language   string
	Items      []cart.RawItem
}

// SubmitResult is returned immediately, within the ≤2s target (§4.8).
type SubmitResult struct {
	OrderID int64
	Status  string
	PollURL string
}

// StatusResult answers GET /orders/status/{order_id} (§6).
type StatusResult struct {
	OrderID       int64
	Status        string
	Processing    bool
	StoreName     string
	TotalAmount   int
	OrderTime     time.Time
	VoiceReady    bool
	VoiceURL      string
	SummaryReady  bool
	ChineseText   string
	TranslatedText string
	Found         bool
}

// Coordinator wires every downstream component (§2 dependency order).
type Coordinator struct {
	stores       *store.Resolver
	writer       *orders.Writer
	summaries    *summary.Store
	tf           *translate.Facade
	synth        *voice.Synthesizer
	pusher       *push.Pusher
	users        *users.Repo
	scheduleTask func(orderID int64)
}

// Deps bundles the Coordinator's collaborators (kept separate from New's
// signature so callers can wire mocks in tests).
type Deps struct {
	Stores       *store.Resolver
	Writer       *orders.Writer
	Summaries    *summary.Store
	Translations *translate.Facade
	Synthesizer  *voice.Synthesizer
	Pusher       *push.Pusher
	Users        *users.Repo
	ScheduleTask func(orderID int64)
}

// New builds a Coordinator.
func New(d Deps) *Coordinator {
	return &Coordinator{
		stores:       d.Stores,
		writer:       d.Writer,
		summaries:    d.Summaries,
		tf:           d.Translations,
		synth:        d.Synthesizer,
		pusher:       d.Pusher,
		users:        d.Users,
		scheduleTask: d.ScheduleTask,
	}
}

// Submit resolves the store, normalises the cart, writes a pending Order,
// and schedules the background task. Target latency ≤2s (§4.8).
func (c *Coordinator) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	storeID, err := c.stores.Resolve(req.StoreRef)
	if err != nil {
		return nil, err
	}

	userID, err := c.users.Resolve(req.LineUserID, translate.Normalize(req.Language))
	if err != nil {
		return nil, err
	}

	canonical := cart.Normalize(req.Items)
	if len(canonical) == 0 {
		return nil, errors.ValidationError("cart has no valid items")
	}

	orderID, err := c.writer.CreatePending(userID, storeID)
	if err != nil {
		return nil, err
	}

	if err := c.writer.WriteItems(orderID, storeID, canonical); err != nil {
		return nil, err
	}

	if c.scheduleTask != nil {
		c.scheduleTask(orderID)
	}

	return &SubmitResult{
		OrderID: orderID,
		Status:  models.OrderStatusPending,
		PollURL: fmt.Sprintf("/api/orders/status/%d", orderID),
	}, nil
}

// Status answers a poll. Unknown order ids return a found=false result
// rather than an error, so the caller can render `{status:"not_found"}`
// without a 404 (§8 boundary behaviour).
func (c *Coordinator) Status(orderID int64) (*StatusResult, error) {
	order, err := c.writer.Get(orderID)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok && appErr.Code == errors.CodeNotFound {
			return &StatusResult{Found: false}, nil
		}
		return nil, err
	}

	res := &StatusResult{
		OrderID:     order.ID,
		Status:      order.Status,
		Processing:  order.IsProcessing(),
		TotalAmount: order.TotalAmount,
		OrderTime:   order.OrderTime,
		Found:       true,
	}

	s, err := c.summaries.Get(orderID)
	if err == nil {
		res.SummaryReady = true
		res.ChineseText = s.ChineseSummary
		res.TranslatedText = s.UserLanguageSummary
		if s.VoiceURL != "" {
			res.VoiceReady = true
			res.VoiceURL = s.VoiceURL
		}
	}

	return res, nil
}

// ProcessTask is the background entrypoint (§4.8 "Background pipeline").
// It is idempotent: a second invocation for an order already past
// "processing" exits immediately without side effects.
func (c *Coordinator) ProcessTask(ctx context.Context, orderID int64) error {
	ctx, cancel := context.WithTimeout(ctx, taskDeadline)
	defer cancel()

	ok, err := c.writer.CompareAndSetStatus(orderID, models.OrderStatusPending, models.OrderStatusProcessing)
	if err != nil {
		return err
	}
	if !ok {
		logger.Info("process_task skipped: order already processing or terminal", map[string]interface{}{"order_id": orderID})
		return nil
	}

	if err := c.runPipeline(ctx, orderID); err != nil {
		logger.Error("order pipeline failed", map[string]interface{}{
			"order_id": orderID,
			"error":    err.Error(),
		})
		_ = c.writer.SetStatus(orderID, models.OrderStatusFailed)
		return err
	}

	return nil
}

func (c *Coordinator) runPipeline(ctx context.Context, orderID int64) error {
	order, err := c.writer.Get(orderID)
	if err != nil {
		return err
	}

	items, err := c.writer.LoadCart(orderID)
	if err != nil {
		return err
	}

	st, err := c.stores.Get(order.StoreID)
	storeName := "未命名店家"
	if err == nil {
		storeName = st.DisplayName
	}

	user, err := c.users.Get(order.UserID)
	if err != nil {
		return err
	}

	language := translate.Normalize(user.PreferredLanguage)
	rendered := summary.Render(ctx, c.tf, storeName, items, language)

	result := c.synth.Synthesize(ctx, rendered.VoiceText, 1.0)

	var voiceURL string
	var durationMs int64
	if !result.IsFallback {
		voiceURL, err = c.synth.Upload(ctx, result.LocalPath, orderID)
		if err != nil {
			logger.Warn("voice upload failed, continuing as text-only delivery", map[string]interface{}{
				"order_id": orderID,
				"error":    err.Error(),
			})
			voiceURL = ""
		} else {
			durationMs = result.DurationMs
		}
	}

	tx, err := c.writer.BeginTx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := c.summaries.Insert(tx, orderID, rendered, language, voiceURL, durationMs); err != nil {
		return err
	}
	if err := c.writer.SetStatusTx(tx, orderID, models.OrderStatusCompleted); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	c.pusher.Push(ctx, user.LineUserID, rendered.UserLanguageSummary, rendered.ChineseSummary, order.TotalAmount, voiceURL, durationMs)

	return nil
}
