package engine

import (
	"context"
	"errors"
	"log"
	"math"
	"sync"
	"time"

	"github.com/zlnvch/placebot/canvas"
	"github.com/zlnvch/placebot/charge"
	"github.com/zlnvch/placebot/models"
	"github.com/zlnvch/placebot/settings"
)

// Status labels, exposed verbatim through the control API.
const (
	StatusWaiting    = "Waiting to be started."
	StatusStarted    = "Started."
	StatusChecking   = "Checking for pixels..."
	StatusPainting   = "Painting..."
	StatusCooldown   = "Waiting for cooldown."
	StatusMonitoring = "Monitoring for changes."
	StatusFinished   = "Finished."
	StatusStopped    = "Stopped."
)

const (
	// noAccountRetry is the fixed wait when not a single account in the
	// rotation could log in and load tiles.
	noAccountRetry = 30 * time.Second

	// Backoff bounds for cycles where the whole rotation failed. The
	// delay doubles per consecutive failed cycle and resets on success.
	initialRetryDelay = 30 * time.Second
	maxRetryDelay     = 5 * time.Minute

	tokenRetrySleep = time.Second
	maxTurnAttempts = 5
)

// UserDirectory is the runner's view of the account store. Re-read before
// every use so suspensions land immediately.
type UserDirectory interface {
	User(id string) (models.User, error)
	Suspend(id string, d time.Duration) error
}

// StatusSink receives status and progress updates for persistence and
// connected UIs. Calls must not block.
type StatusSink interface {
	TemplateStatus(templateId string, status string, pixelsRemaining, totalPixels int)
}

// ClientFactory builds a fresh canvas session. One per account attempt so
// cookie jars never mix.
type ClientFactory func() (canvas.Client, error)

// Runner executes one template: an endless check/paint/cooldown loop over
// the template's account rotation. All sleeps are interruptible so settings
// edits and stops take effect immediately.
type Runner struct {
	users     UserDirectory
	cfg       *settings.Manager
	charges   *charge.Predictor
	scheduler *Scheduler
	newClient ClientFactory
	sink      StatusSink

	mu              sync.Mutex
	template        models.Template
	userQueue       []string
	running         bool
	status          string
	pixelsRemaining int
	totalPixels     int
	retryDelay      time.Duration

	wake chan struct{}
}

func NewRunner(tpl models.Template, users UserDirectory, cfg *settings.Manager, charges *charge.Predictor, tokens TokenSource, newClient ClientFactory, sink StatusSink) *Runner {
	total := tpl.Image.TotalPixels()
	return &Runner{
		users:           users,
		cfg:             cfg,
		charges:         charges,
		scheduler:       &Scheduler{Tokens: tokens},
		newClient:       newClient,
		sink:            sink,
		template:        tpl,
		userQueue:       append([]string(nil), tpl.UserIds...),
		status:          StatusWaiting,
		pixelsRemaining: total,
		totalPixels:     total,
		retryDelay:      initialRetryDelay,
		wake:            make(chan struct{}, 1),
	}
}

// Run drives the template until completion or Stop. Blocking; callers run
// it in its own goroutine.
func (r *Runner) Run(ctx context.Context) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return
	}
	r.running = true
	r.retryDelay = initialRetryDelay
	r.mu.Unlock()

	r.setStatus(StatusStarted)
	log.Printf("▶️ Starting template %q.", r.Template().Name)

	defer func() {
		r.mu.Lock()
		r.running = false
		finished := r.status == StatusFinished
		r.mu.Unlock()
		if !finished {
			r.setStatus(StatusStopped)
		}
	}()

	for r.isRunning() && ctx.Err() == nil {
		r.setStatus(StatusChecking)
		tpl := r.Template()
		log.Printf("[%s] 🔍 Starting new check cycle...", tpl.Name)

		mismatches, ok := r.findWorkingAccount(ctx, tpl)
		if !ok {
			log.Printf("[%s] ❌ No working accounts for the pixel check. Retrying in %s.", tpl.Name, noAccountRetry)
			r.sleep(ctx, noAccountRetry)
			continue
		}
		r.setPixelsRemaining(len(mismatches))

		if len(mismatches) == 0 {
			if tpl.AntiGriefMode {
				standby := r.cfg.Get().AntiGriefStandbyDuration()
				r.setStatus(StatusMonitoring)
				log.Printf("[%s] 🖼️ Template complete. Monitoring, next check in %s.", tpl.Name, standby)
				r.sleep(ctx, standby)
				continue
			}
			log.Printf("[%s] ✅ Template finished.", tpl.Name)
			r.setStatus(StatusFinished)
			return
		}

		r.resetRetryDelay()
		r.setStatus(StatusPainting)

		if !r.paintPass(ctx, tpl) {
			delay := r.nextRetryDelay()
			log.Printf("[%s] ⌛ Every paint turn failed this cycle. Backing off %s.", tpl.Name, delay)
			r.sleep(ctx, delay)
			continue
		}

		if cooldown := r.cfg.Get().AccountCooldownDuration(); r.isRunning() && cooldown > 0 {
			r.setStatus(StatusCooldown)
			log.Printf("[%s] ⏱️ Waiting for cooldown (%s).", tpl.Name, cooldown)
			r.sleep(ctx, cooldown)
		}
	}
}

// Stop requests a cooperative stop; the loop observes it at the next
// iteration or sleep wake. Run can be called again afterwards.
func (r *Runner) Stop() {
	r.mu.Lock()
	r.running = false
	r.mu.Unlock()
	r.Wake()
}

// Wake interrupts the current sleep, if any, so the loop re-reads settings
// and template state.
func (r *Runner) Wake() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Update replaces the template definition for the next cycle.
func (r *Runner) Update(tpl models.Template) {
	r.mu.Lock()
	r.template = tpl
	r.userQueue = append([]string(nil), tpl.UserIds...)
	r.totalPixels = tpl.Image.TotalPixels()
	r.mu.Unlock()
	r.Wake()
}

func (r *Runner) Template() models.Template {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.template
}

// State is a point-in-time progress snapshot.
type State struct {
	Running         bool   `json:"running"`
	Status          string `json:"status"`
	PixelsRemaining int    `json:"pixelsRemaining"`
	TotalPixels     int    `json:"totalPixels"`
}

func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return State{
		Running:         r.running,
		Status:          r.status,
		PixelsRemaining: r.pixelsRemaining,
		TotalPixels:     r.totalPixels,
	}
}

// findWorkingAccount rotates through the queue until one account can log in
// and load tiles, then computes the full mismatch set for completion
// detection. Every consulted account is cycled to the back.
func (r *Runner) findWorkingAccount(ctx context.Context, tpl models.Template) ([]MismatchPixel, bool) {
	for i, n := 0, r.queueLen(); i < n; i++ {
		id := r.rotateQueue()

		user, err := r.users.User(id)
		if err != nil || user.IsSuspended(time.Now()) {
			continue
		}

		client, err := r.newClient()
		if err != nil {
			log.Printf("[%s] Client setup failed: %v", tpl.Name, err)
			continue
		}

		log.Printf("[%s] Checking template status with account %s...", tpl.Name, user.Name)
		info, err := client.Login(ctx, user.Cookies)
		if err != nil {
			logAccountError(user, "pixel check login", err)
			continue
		}
		r.charges.Mark(user.Id, info.Charges.Whole(), time.Now())

		if err := client.LoadTiles(ctx, tpl.Anchor, tpl.Image.Width, tpl.Image.Height); err != nil {
			logAccountError(user, "pixel check tile load", err)
			continue
		}

		mismatches := ComputeMismatches(tpl.Image, tpl.Anchor, client.Tiles(), ResolveOptions{
			ExtraColorsBitmap: info.ExtraColorsBitmap,
			Erase:             tpl.EraseMode,
			SkipPainted:       tpl.SkipPaintedPixels,
		})
		log.Printf("[%s] Check complete. Found %d mismatched pixels.", tpl.Name, len(mismatches))
		return mismatches, true
	}
	return nil, false
}

// paintPass gives every eligible account one paint turn. Reports whether at
// least one turn completed without error.
func (r *Runner) paintPass(ctx context.Context, tpl models.Template) bool {
	cfg := r.cfg.Get()
	anySuccess := false

	for _, id := range r.queueSnapshot() {
		if !r.isRunning() || ctx.Err() != nil {
			break
		}

		user, err := r.users.User(id)
		if err != nil || user.IsSuspended(time.Now()) {
			continue
		}

		if r.belowChargeThreshold(tpl, cfg, user) {
			continue
		}

		client, err := r.newClient()
		if err != nil {
			log.Printf("[%s] Client setup failed: %v", tpl.Name, err)
			continue
		}
		info, err := client.Login(ctx, user.Cookies)
		if err != nil {
			logAccountError(user, "paint turn login", err)
			continue
		}
		r.charges.Mark(user.Id, info.Charges.Whole(), time.Now())

		if err := client.LoadTiles(ctx, tpl.Anchor, tpl.Image.Width, tpl.Image.Height); err != nil {
			logAccountError(user, "paint turn tile load", err)
			continue
		}

		painted, err := r.paintTurn(ctx, tpl, cfg, client, user, info)
		if painted > 0 {
			r.charges.Consume(user.Id, painted, time.Now())
			r.setPixelsRemaining(max(0, r.State().PixelsRemaining-painted))
		}
		if err != nil {
			var susp *canvas.SuspensionError
			if errors.As(err, &susp) {
				log.Printf("[%s] %s 🛑 Account suspended for %s.", tpl.Name, user.Name, susp.Duration)
				if serr := r.users.Suspend(user.Id, susp.Duration); serr != nil {
					log.Printf("[%s] Failed to record suspension for %s: %v", tpl.Name, user.Name, serr)
				}
				continue
			}
			logAccountError(user, "paint turn", err)
			continue
		}
		anySuccess = true

		r.handleUpgrades(ctx, tpl, cfg, client, user)
		r.handleChargePurchases(ctx, tpl, cfg, client, user)
	}
	return anySuccess
}

// belowChargeThreshold skips accounts the predictor says are well short of
// the configured fill level, unless what they have already finishes the
// template. Stale predictions never block a turn.
func (r *Runner) belowChargeThreshold(tpl models.Template, cfg settings.Settings, user models.User) bool {
	now := time.Now()
	predicted, known := r.charges.Predict(user.Id, now)
	if !known || r.charges.IsStale(user.Id, now) {
		return false
	}

	target := int(math.Ceil(cfg.ChargeThreshold * float64(predicted.Max)))
	if remaining := r.State().PixelsRemaining; remaining < target {
		target = remaining
	}
	if predicted.Count >= target {
		return false
	}
	log.Printf("[%s] %s has %d/%d charges, waiting for %d. Skipping this turn.",
		tpl.Name, user.Name, predicted.Count, predicted.Max, target)
	return true
}

// paintTurn runs the scheduler for one account, refreshing the token and
// re-resolving against the patched tile cache after each rejection, up to
// maxTurnAttempts.
func (r *Runner) paintTurn(ctx context.Context, tpl models.Template, cfg settings.Settings, client canvas.Client, user models.User, info canvas.UserInfo) (int, error) {
	opts := PlanOptions{
		OutlineOnly: tpl.OutlineMode,
		Direction:   cfg.DrawingDirection,
		Order:       cfg.DrawingOrder,
		ImageWidth:  tpl.Image.Width,
		ImageHeight: tpl.Image.Height,
	}

	total := 0
	for attempt := 1; ; attempt++ {
		mismatches := ComputeMismatches(tpl.Image, tpl.Anchor, client.Tiles(), ResolveOptions{
			Skip:              cfg.PixelSkip,
			ExtraColorsBitmap: info.ExtraColorsBitmap,
			Erase:             tpl.EraseMode,
			SkipPainted:       tpl.SkipPaintedPixels,
		})
		if len(mismatches) == 0 {
			return total, nil
		}
		opts.Budget = info.Charges.Whole().Count - total

		painted, err := r.scheduler.PlanAndExecute(ctx, client, tpl.Name, mismatches, opts)
		total += painted
		if err == nil {
			return total, nil
		}
		if !errors.Is(err, canvas.ErrRefreshToken) || attempt >= maxTurnAttempts {
			return total, err
		}

		log.Printf("[%s] %s 🔥 Token expired mid-turn, fetching a fresh one (attempt %d/%d).",
			tpl.Name, user.Name, attempt, maxTurnAttempts)
		select {
		case <-time.After(tokenRetrySleep):
		case <-ctx.Done():
			return total, ctx.Err()
		}
	}
}

// handleUpgrades spends spare droplets on permanent max-charge upgrades.
// Failures are logged, never propagated.
func (r *Runner) handleUpgrades(ctx context.Context, tpl models.Template, cfg settings.Settings, client canvas.Client, user models.User) {
	if !tpl.CanBuyMaxCharges {
		return
	}

	info, err := client.RefreshUserInfo(ctx)
	if err != nil {
		logAccountError(user, "upgrade purchase profile read", err)
		return
	}
	amount := (info.Droplets - cfg.DropletReserve) / canvas.DropletsPerUnit
	if amount <= 0 {
		return
	}

	if err := client.BuyProduct(ctx, canvas.ProductMaxChargeUpgrade, amount); err != nil {
		logAccountError(user, "upgrade purchase", err)
		return
	}
	sleepCtx(ctx, cfg.PurchaseCooldownDuration())
	if fresh, err := client.RefreshUserInfo(ctx); err == nil {
		r.charges.Mark(user.Id, fresh.Charges.Whole(), time.Now())
	}
}

// handleChargePurchases converts spare droplets into immediate charges when
// the account is below its cap.
func (r *Runner) handleChargePurchases(ctx context.Context, tpl models.Template, cfg settings.Settings, client canvas.Client, user models.User) {
	if !tpl.CanBuyCharges {
		return
	}

	info, err := client.RefreshUserInfo(ctx)
	if err != nil {
		logAccountError(user, "charge purchase profile read", err)
		return
	}
	if info.Charges.Count >= info.Charges.Max || info.Droplets <= cfg.DropletReserve {
		return
	}
	amount := (info.Droplets - cfg.DropletReserve) / canvas.DropletsPerUnit
	if amount <= 0 {
		return
	}

	if err := client.BuyProduct(ctx, canvas.ProductCharges, amount); err != nil {
		logAccountError(user, "charge purchase", err)
		return
	}
	sleepCtx(ctx, cfg.PurchaseCooldownDuration())
	if fresh, err := client.RefreshUserInfo(ctx); err == nil {
		r.charges.Mark(user.Id, fresh.Charges.Whole(), time.Now())
	}
}

func (r *Runner) isRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

func (r *Runner) queueLen() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.userQueue)
}

func (r *Runner) queueSnapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.userQueue...)
}

func (r *Runner) rotateQueue() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.userQueue[0]
	r.userQueue = append(r.userQueue[1:], id)
	return id
}

func (r *Runner) resetRetryDelay() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.retryDelay = initialRetryDelay
}

// nextRetryDelay returns the current backoff and doubles it, capped.
func (r *Runner) nextRetryDelay() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	d := r.retryDelay
	r.retryDelay *= 2
	if r.retryDelay > maxRetryDelay {
		r.retryDelay = maxRetryDelay
	}
	return d
}

func (r *Runner) setStatus(status string) {
	r.mu.Lock()
	r.status = status
	id := r.template.Id
	remaining := r.pixelsRemaining
	total := r.totalPixels
	r.mu.Unlock()

	if r.sink != nil {
		r.sink.TemplateStatus(id, status, remaining, total)
	}
}

func (r *Runner) setPixelsRemaining(n int) {
	r.mu.Lock()
	r.pixelsRemaining = n
	id := r.template.Id
	status := r.status
	total := r.totalPixels
	r.mu.Unlock()

	if r.sink != nil {
		r.sink.TemplateStatus(id, status, n, total)
	}
}

// sleep waits out d unless woken by Wake, Stop or context cancellation.
func (r *Runner) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-r.wake:
	case <-ctx.Done():
	}
}

// sleepCtx is a plain context-aware sleep for short fixed pauses.
func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}

func logAccountError(user models.User, action string, err error) {
	var netErr *canvas.NetworkError
	var authErr *canvas.AuthError
	switch {
	case errors.As(err, &netErr):
		log.Printf("[%s] %s ❌ Network problem during %s: %s", user.Id, user.Name, action, netErr.Reason)
	case errors.As(err, &authErr):
		log.Printf("[%s] %s 🔒 Credential rejected during %s: %s", user.Id, user.Name, action, authErr.Reason)
	default:
		log.Printf("[%s] %s ❌ Failed to %s: %v", user.Id, user.Name, action, err)
	}
}
