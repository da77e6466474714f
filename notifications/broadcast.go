// Package notifications delivers the daily broadcast: order status notices
// and active promotions. Delivery is best effort; a failed recipient is
// logged and counted and the run goes on.
package notifications

import (
	"context"
	"fmt"
	"html"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"kiprej-bot/dtos"
	"kiprej-bot/models"
	"kiprej-bot/services"
	"kiprej-bot/utils"
)

// Sender delivers one message to one chat.
type Sender interface {
	SendText(ctx context.Context, chatID int64, text string) error
}

type Report struct {
	Notices    int
	Promotions int
	Failed     int
}

func (r Report) String() string {
	return fmt.Sprintf("Order notices: %d. Promotions: %d. Failed: %d.", r.Notices, r.Promotions, r.Failed)
}

// ErrBroadcastRunning is returned when a run is requested while another
// one is still in progress.
var ErrBroadcastRunning = errors.New("a broadcast is already running")

type Broadcaster struct {
	svc     *services.Services
	sender  Sender
	limiter *rate.Limiter
	now     func() time.Time
	running atomic.Bool
}

// NewBroadcaster paces sends at perSecond messages per second.
func NewBroadcaster(svc *services.Services, sender Sender, perSecond float64) *Broadcaster {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	return &Broadcaster{
		svc:     svc,
		sender:  sender,
		limiter: rate.NewLimiter(limit, 1),
		now:     time.Now,
	}
}

// outcome observes each delivery attempt.
type outcome func(kind string, chatID int64, err error)

const (
	kindNotice    = "notice"
	kindPromotion = "promotion"
)

func (b *Broadcaster) Run(ctx context.Context) (Report, error) {
	return b.run(ctx, nil)
}

// RunJob runs a broadcast recorded in jobs under id.
func (b *Broadcaster) RunJob(ctx context.Context, jobs *utils.JobStore, id uuid.UUID) {
	jobs.SetProcessing(id)
	_, err := b.run(ctx, func(kind string, chatID int64, err error) {
		if err != nil {
			jobs.AddFailure(id, chatID, err)
			return
		}
		jobs.UpdateJob(id, func(job *dtos.BroadcastJob) {
			if kind == kindNotice {
				job.Notices++
			} else {
				job.Promotions++
			}
		})
	})
	if err != nil {
		log.WithError(err).WithField("job_id", id).Error("Broadcast job failed")
		jobs.CompleteJob(id, dtos.JobStatusFailed)
		return
	}
	jobs.CompleteJob(id, dtos.JobStatusCompleted)
}

// run refuses to start while another run of b is in progress, so no
// recipient gets the same notice twice.
func (b *Broadcaster) run(ctx context.Context, observe outcome) (Report, error) {
	var report Report
	if !b.running.CompareAndSwap(false, true) {
		return report, ErrBroadcastRunning
	}
	defer b.running.Store(false)
	started := b.now()

	if err := b.sendNotices(ctx, &report, observe); err != nil {
		return report, err
	}
	if err := b.sendPromotions(ctx, &report, observe); err != nil {
		return report, err
	}

	log.WithFields(log.Fields{
		"notices":    report.Notices,
		"promotions": report.Promotions,
		"failed":     report.Failed,
		"took":       time.Since(started).String(),
	}).Info("Broadcast finished")
	return report, nil
}

func (b *Broadcaster) sendNotices(ctx context.Context, report *Report, observe outcome) error {
	orders, err := b.svc.Orders.PendingNotices(ctx)
	if err != nil {
		return errors.Wrap(err, "load pending notices")
	}
	for _, o := range orders {
		if o.User == nil {
			continue
		}
		err := b.deliver(ctx, o.User.TelegramID, statusNotice(&o))
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if observe != nil {
			observe(kindNotice, o.User.TelegramID, err)
		}
		if err != nil {
			report.Failed++
			log.WithError(err).WithFields(log.Fields{"chat_id": o.User.TelegramID, "order_id": o.ID}).Warn("Failed to send order notice")
			continue
		}
		report.Notices++
		if err := b.svc.Orders.MarkNotified(ctx, o.ID); err != nil {
			log.WithError(err).WithField("order_id", o.ID).Warn("Failed to mark order notified")
		}
	}
	return nil
}

func (b *Broadcaster) sendPromotions(ctx context.Context, report *Report, observe outcome) error {
	promotions, err := b.svc.Promotions.Active(ctx, b.now())
	if err != nil {
		return errors.Wrap(err, "load promotions")
	}
	if len(promotions) == 0 {
		return nil
	}
	users, err := b.svc.Users.ListSubscribed(ctx)
	if err != nil {
		return errors.Wrap(err, "load subscribers")
	}

	customers := make(map[uint]bool, len(users))
	for _, u := range users {
		n, err := b.svc.Orders.CountForUser(ctx, u.ID)
		if err != nil {
			return errors.Wrap(err, "count orders")
		}
		customers[u.ID] = n > 0
	}

	for _, p := range promotions {
		for _, u := range users {
			err := b.deliver(ctx, u.TelegramID, promotionText(&p, &u, customers[u.ID]))
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if observe != nil {
				observe(kindPromotion, u.TelegramID, err)
			}
			if err != nil {
				report.Failed++
				log.WithError(err).WithFields(log.Fields{"chat_id": u.TelegramID, "promotion_id": p.ID}).Warn("Failed to send promotion")
				continue
			}
			report.Promotions++
		}
	}
	return nil
}

func (b *Broadcaster) deliver(ctx context.Context, chatID int64, text string) error {
	if err := b.limiter.Wait(ctx); err != nil {
		return err
	}
	return b.sender.SendText(ctx, chatID, text)
}

func statusNotice(o *models.Order) string {
	return fmt.Sprintf("📦 Your order <b>%s</b> is now <b>%s</b>.", html.EscapeString(o.OrderNumber), o.Status)
}

func promotionText(p *models.Promotion, u *models.User, customer bool) string {
	opening := fmt.Sprintf("Hello, %s!", html.EscapeString(u.FullName))
	if customer {
		opening = fmt.Sprintf("Thank you for shopping with us, %s! Here is something new for you.", html.EscapeString(u.FullName))
	}
	return fmt.Sprintf("%s\n\n<b>%s</b>\n%s", opening, html.EscapeString(p.Title), html.EscapeString(p.Description))
}
