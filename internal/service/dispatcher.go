package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"campaignhub/internal/lock"
	"campaignhub/internal/logging"
	"campaignhub/internal/metrics"
	"campaignhub/internal/models"
	"campaignhub/internal/repository"
	"campaignhub/internal/transport"
)

const (
	defaultConcurrency  = 5
	defaultSendTimeout  = 15 * time.Second
	defaultVIPMinOrders = 5
	lockReleaseTimeout  = 5 * time.Second
)

// DispatcherOption configures a Dispatcher
type DispatcherOption func(d *Dispatcher)

// SetLogger sets the logger used for dispatch and per-recipient logs
func SetLogger(logger logrus.FieldLogger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// SetMetrics sets the Prometheus collectors
func SetMetrics(m *metrics.Metrics) DispatcherOption {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// SetLocker enables the per-campaign dispatch lock
func SetLocker(l lock.Locker) DispatcherOption {
	return func(d *Dispatcher) {
		d.locker = l
	}
}

// SetConcurrency bounds how many recipients are sent to at once
func SetConcurrency(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.concurrency = n
		}
	}
}

// SetSendTimeout bounds each provider call
func SetSendTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.sendTimeout = timeout
		}
	}
}

// SetSegments replaces the segment registry
func SetSegments(r *SegmentRegistry) DispatcherOption {
	return func(d *Dispatcher) {
		d.segments = r
	}
}

// SetTemplates replaces the template service
func SetTemplates(t *TemplateService) DispatcherOption {
	return func(d *Dispatcher) {
		d.templates = t
	}
}

// SetRedactor controls how recipient contacts appear in logs
func SetRedactor(r logging.Redactor) DispatcherOption {
	return func(d *Dispatcher) {
		d.redactor = r
	}
}

// SetClock overrides time.Now, for tests
func SetClock(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) {
		d.now = now
	}
}

// Dispatcher drives one campaign from draft to sent
type Dispatcher struct {
	campaigns repository.CampaignRepository
	customers repository.CustomerRepository
	email     transport.EmailTransport
	sms       transport.SMSTransport
	creds     Credentials

	segments  *SegmentRegistry
	templates *TemplateService
	locker    lock.Locker
	metrics   *metrics.Metrics
	logger    logrus.FieldLogger
	redactor  logging.Redactor

	concurrency int
	sendTimeout time.Duration
	now         func() time.Time
}

// NewDispatcher creates a dispatcher. A nil transport in transports means
// that channel is not dispatchable, whatever the credentials say.
func NewDispatcher(
	campaigns repository.CampaignRepository,
	customers repository.CustomerRepository,
	transports transport.Set,
	creds Credentials,
	options ...DispatcherOption,
) *Dispatcher {
	d := &Dispatcher{
		campaigns:   campaigns,
		customers:   customers,
		email:       transports.Email,
		sms:         transports.SMS,
		creds:       creds,
		logger:      logrus.StandardLogger(),
		redactor:    logging.Redactor{Enabled: true},
		concurrency: defaultConcurrency,
		sendTimeout: defaultSendTimeout,
		now:         time.Now,
	}

	for _, option := range options {
		option(d)
	}

	if d.segments == nil {
		d.segments = NewSegmentRegistry(defaultVIPMinOrders)
	}
	if d.templates == nil {
		d.templates = NewTemplateService(d.logger)
	}

	return d
}

// sendFunc delivers rendered content to one contact
type sendFunc func(ctx context.Context, to, name string) error

// Dispatch sends campaignID to every recipient in its segment and marks it
// sent. Precondition failures return a *NotFoundError, *ValidationError or
// *DispatchError and leave no trace. Once sending starts, every recipient
// is attempted and per-recipient failures only show up in the counts.
func (d *Dispatcher) Dispatch(ctx context.Context, campaignID string) (result *models.DispatchResult, err error) {
	start := d.now()
	channel := "unknown"
	logger := d.logger.WithField("campaign_id", campaignID)

	defer func() {
		outcome := "success"
		if err != nil {
			outcome = string(ErrorKind(err))
			if IsPrecondition(err) {
				logger.WithError(err).WithField("kind", outcome).Info("campaign dispatch refused")
			} else {
				logger.WithError(err).Error("campaign dispatch failed")
			}
		}
		d.metrics.ObserveDispatch(channel, outcome, d.now().Sub(start))
	}()

	if campaignID == "" {
		return nil, &ValidationError{Message: "campaignId is required"}
	}

	campaign, err := d.loadCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	channel = string(campaign.Channel)
	logger = logger.WithField("channel", channel)

	if !campaign.CanDispatch() {
		return nil, newDispatchError(KindAlreadySent, campaignID, "campaign was already sent")
	}

	// Credentials gate the channel before the directory is touched
	send, err := d.senderFor(campaign)
	if err != nil {
		return nil, err
	}

	filter, ok := d.segments.Resolve(campaign.TargetSegment)
	if !ok {
		return nil, newDispatchError(KindInvalidSegment, campaignID, "unknown target segment %q", campaign.TargetSegment)
	}

	recipients, err := d.customers.QueryCustomers(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve segment %s: %w", campaign.TargetSegment, err)
	}
	if len(recipients) == 0 {
		return nil, newDispatchError(KindNoRecipients, campaignID, "segment %q has no customers", campaign.TargetSegment)
	}

	release, err := d.acquire(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	defer release()

	// Someone may have finished a dispatch between our first read and the lock
	campaign, err = d.loadCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if !campaign.CanDispatch() {
		return nil, newDispatchError(KindAlreadySent, campaignID, "campaign was already sent")
	}

	logger.WithField("segment", campaign.TargetSegment).
		WithField("recipients", len(recipients)).
		Info("dispatching campaign")

	// From here on the batch runs to completion even if the caller goes away
	runCtx := context.WithoutCancel(ctx)

	sent, failed, skipped := d.sendAll(runCtx, logger, campaign.Channel, recipients, send)

	if err := d.campaigns.MarkSent(runCtx, campaignID, d.now()); err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			logger.WithField("sent", sent).Error("campaign was marked sent by another dispatch after our batch ran")
			return nil, newDispatchError(KindAlreadySent, campaignID, "campaign was already sent")
		}
		return nil, fmt.Errorf("failed to mark campaign %s sent: %w", campaignID, err)
	}

	result = &models.DispatchResult{
		Success:       true,
		CampaignID:    campaignID,
		SentCount:     sent,
		FailedCount:   failed,
		SkippedCount:  skipped,
		TotalTargeted: len(recipients),
	}

	logger.WithFields(logrus.Fields{
		"sent":           result.SentCount,
		"failed":         result.FailedCount,
		"skipped":        result.SkippedCount,
		"total_targeted": result.TotalTargeted,
		"duration":       d.now().Sub(start).String(),
	}).Info("campaign dispatched")

	return result, nil
}

func (d *Dispatcher) loadCampaign(ctx context.Context, campaignID string) (*models.Campaign, error) {
	campaign, err := d.campaigns.GetByID(ctx, campaignID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &NotFoundError{Resource: "campaign", ID: campaignID}
		}
		return nil, fmt.Errorf("failed to load campaign %s: %w", campaignID, err)
	}
	return campaign, nil
}

// senderFor picks the transport for the campaign's channel
func (d *Dispatcher) senderFor(campaign *models.Campaign) (sendFunc, error) {
	if !campaign.Channel.Valid() {
		return nil, &ValidationError{Message: fmt.Sprintf("unsupported channel %q", campaign.Channel)}
	}

	notConfigured := newDispatchError(KindTransportNotConfigured, campaign.ID, "%s transport is not configured", campaign.Channel)
	if !d.creds.Has(campaign.Channel) {
		return nil, notConfigured
	}

	content := d.templates.Compile(campaign.Content)

	switch campaign.Channel {
	case models.ChannelEmail:
		if d.email == nil {
			return nil, notConfigured
		}
		subject := campaign.Subject()
		return func(ctx context.Context, to, name string) error {
			return d.email.SendEmail(ctx, to, subject, content.Render(name))
		}, nil
	default:
		if d.sms == nil {
			return nil, notConfigured
		}
		return func(ctx context.Context, to, name string) error {
			return d.sms.SendSMS(ctx, to, content.Render(name))
		}, nil
	}
}

// acquire takes the dispatch lock for campaignID and keeps an expiring
// lease renewed while it is held. The returned func releases it and is
// safe to call when no locker is configured.
func (d *Dispatcher) acquire(ctx context.Context, campaignID string) (func(), error) {
	if d.locker == nil {
		return func() {}, nil
	}

	l := d.locker.NewLock(lock.CampaignKey(campaignID))
	acquired, err := l.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire dispatch lock: %w", err)
	}
	if !acquired {
		return nil, newDispatchError(KindDispatchInProgress, campaignID, "another dispatch of this campaign is running")
	}

	stopRenewal := func() {}
	if ext, ok := l.(lock.Extender); ok {
		stopRenewal = lock.KeepAlive(context.WithoutCancel(ctx), ext, func(err error) {
			d.logger.WithError(err).WithField("campaign_id", campaignID).Warn("failed to renew dispatch lock")
		})
	}

	return func() {
		stopRenewal()
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), lockReleaseTimeout)
		defer cancel()
		if err := l.Release(releaseCtx); err != nil {
			d.logger.WithError(err).WithField("campaign_id", campaignID).Warn("failed to release dispatch lock")
		}
	}, nil
}

// sendAll attempts every recipient exactly once with bounded concurrency
func (d *Dispatcher) sendAll(
	ctx context.Context,
	logger logrus.FieldLogger,
	channel models.Channel,
	recipients []*models.Customer,
	send sendFunc,
) (sent, failed, skipped int) {
	var sentCount, failedCount, skippedCount atomic.Int64

	var g errgroup.Group
	g.SetLimit(d.concurrency)

	for _, customer := range recipients {
		customer := customer
		g.Go(func() error {
			to, ok := customer.ContactFor(channel)
			if !ok {
				skippedCount.Add(1)
				d.metrics.ObserveRecipient(string(channel), metrics.ResultSkipped)
				logger.WithField("customer_id", customer.ID).Debug("recipient has no contact for channel, skipping")
				return nil
			}

			// A panicking transport costs one recipient, not the process
			defer func() {
				if r := recover(); r != nil {
					failedCount.Add(1)
					d.metrics.ObserveRecipient(string(channel), metrics.ResultFailed)
					logger.WithField("customer_id", customer.ID).
						WithField("recipient", d.redactor.Contact(to)).
						WithField("panic", fmt.Sprint(r)).
						Warn("recipient send panicked")
				}
			}()

			sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
			defer cancel()

			if err := send(sendCtx, to, customer.DisplayName()); err != nil {
				failedCount.Add(1)
				d.metrics.ObserveRecipient(string(channel), metrics.ResultFailed)
				logger.WithError(err).
					WithField("customer_id", customer.ID).
					WithField("recipient", d.redactor.Contact(to)).
					Warn("recipient send failed")
				return nil
			}

			sentCount.Add(1)
			d.metrics.ObserveRecipient(string(channel), metrics.ResultSent)
			return nil
		})
	}

	// Workers never return an error; a failed send is only counted
	_ = g.Wait()

	return int(sentCount.Load()), int(failedCount.Load()), int(skippedCount.Load())
}

// FailureResult builds the caller-visible result for a dispatch that did
// not run. Internal errors keep their details out of the message.
func FailureResult(campaignID string, err error) *models.DispatchFailure {
	kind := ErrorKind(err)
	message := err.Error()
	if kind == KindInternal {
		message = "an internal error occurred"
	}
	return &models.DispatchFailure{
		Success:    false,
		CampaignID: campaignID,
		Error:      string(kind),
		Message:    message,
	}
}
