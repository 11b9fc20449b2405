package dialogue

import (
	"hash/fnv"
	"sort"

	"github.com/qninhdt/crew-dialogue/server/internal/interest"
	"github.com/qninhdt/crew-dialogue/server/internal/logger"
	"github.com/qninhdt/crew-dialogue/server/internal/personality"
	"github.com/qninhdt/crew-dialogue/server/internal/relationship"
	"github.com/qninhdt/crew-dialogue/server/internal/templates"
	"github.com/qninhdt/crew-dialogue/server/internal/urgency"
	"github.com/qninhdt/crew-dialogue/server/internal/variety"
)

// State is the orchestrator's position in its emission cycle
type State int

const (
	StateIdle State = iota
	StateEvaluating
	StateEmitting
	StateCoolingDown
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateEvaluating:
		return "evaluating"
	case StateEmitting:
		return "emitting"
	case StateCoolingDown:
		return "cooling_down"
	default:
		return "unknown"
	}
}

// DefaultMinHumorAffinity is the humor affinity a character needs before
// humor templates are eligible
const DefaultMinHumorAffinity = 0.5

// Config tunes one orchestrator. Zero fields take their defaults.
type Config struct {
	CooldownTicks       int64   `yaml:"cooldown_ticks"`
	CriticalRepeatTicks int64   `yaml:"critical_repeat_ticks"`
	RecencySize         int     `yaml:"recency_size"`
	RecencyDecayTicks   int64   `yaml:"recency_decay_ticks"`
	InterestThreshold   float64 `yaml:"interest_threshold"`
	// MinHumorAffinity is nil for the default; zero allows humor for everyone
	MinHumorAffinity *float64 `yaml:"min_humor_affinity"`
	DecisionHistory  int      `yaml:"decision_history"`
}

// DefaultConfig returns the stock tuning: 30 tick cooldown, 600 tick critical
// repeat, a recency window of 3 lasting 6000 ticks
func DefaultConfig() Config {
	return Config{
		CooldownTicks:       30,
		CriticalRepeatTicks: urgency.DefaultCriticalRepeatTicks,
		RecencySize:         variety.DefaultSize,
		RecencyDecayTicks:   variety.DefaultDecayTicks,
		InterestThreshold:   interest.DefaultThreshold,
		MinHumorAffinity:    floatPtr(DefaultMinHumorAffinity),
		DecisionHistory:     DefaultDecisionHistory,
	}
}

func floatPtr(f float64) *float64 { return &f }

// HumorGate returns the effective minimum humor affinity
func (c Config) HumorGate() float64 {
	if c.MinHumorAffinity == nil {
		return DefaultMinHumorAffinity
	}
	return *c.MinHumorAffinity
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.CooldownTicks <= 0 {
		c.CooldownTicks = d.CooldownTicks
	}
	if c.CriticalRepeatTicks <= 0 {
		c.CriticalRepeatTicks = d.CriticalRepeatTicks
	}
	if c.RecencySize <= 0 {
		c.RecencySize = d.RecencySize
	}
	if c.RecencyDecayTicks <= 0 {
		c.RecencyDecayTicks = d.RecencyDecayTicks
	}
	if c.InterestThreshold <= 0 {
		c.InterestThreshold = d.InterestThreshold
	}
	if c.MinHumorAffinity == nil {
		c.MinHumorAffinity = d.MinHumorAffinity
	}
	if c.DecisionHistory <= 0 {
		c.DecisionHistory = d.DecisionHistory
	}
	return c
}

// Character identifies the speaker
type Character struct {
	ID      string
	Name    string
	Profile *personality.Profile
}

// Utterance is one emitted line
type Utterance struct {
	CharacterID string             `json:"character_id"`
	Category    templates.Category `json:"category"`
	TemplateID  string             `json:"template_id,omitempty"`
	Text        string             `json:"text"`
	Tick        int64              `json:"tick"`
	Event       interest.EventType `json:"event,omitempty"`
	Stage       relationship.Stage `json:"stage"`
	Urgency     *urgency.Stage     `json:"urgency,omitempty"`
	Fallback    bool               `json:"fallback"`
}

// Sink receives every emitted utterance
type Sink func(Utterance)

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithLogger sets the logger
func WithLogger(l *logger.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

// WithSeed fixes the selector's random seed
func WithSeed(seed int64) Option {
	return func(o *Orchestrator) { o.selector = variety.NewSelector(seed) }
}

// WithSink registers a receiver for emitted utterances
func WithSink(s Sink) Option {
	return func(o *Orchestrator) { o.sink = s }
}

// Orchestrator decides whether and what one character says. It is not safe
// for concurrent use; the owner of the character's tick serialises calls.
type Orchestrator struct {
	character Character
	library   *templates.Library
	cfg       Config
	filter    *interest.Filter
	selector  *variety.Selector
	recent    *variety.RecentLog
	trackers  map[string]*urgency.Tracker
	pending   *transitionQueue
	decisions *decisionLog
	sink      Sink
	log       *logger.Logger

	state        State
	emitted      bool
	lastEmitTick int64
}

// New creates an orchestrator for one character
func New(character Character, library *templates.Library, cfg Config, opts ...Option) *Orchestrator {
	cfg = cfg.withDefaults()
	o := &Orchestrator{
		character: character,
		library:   library,
		cfg:       cfg,
		filter:    interest.NewFilter(cfg.InterestThreshold),
		selector:  variety.NewSelector(seedFor(character.ID)),
		recent:    variety.NewRecentLog(cfg.RecencySize),
		trackers:  make(map[string]*urgency.Tracker),
		pending:   newTransitionQueue(),
		decisions: newDecisionLog(cfg.DecisionHistory),
		log:       logger.Nop(),
		state:     StateIdle,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.log = o.log.With("character", character.ID)
	return o
}

func seedFor(id string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(id))
	return int64(h.Sum64())
}

// Character returns the speaker
func (o *Orchestrator) Character() Character { return o.character }

// Config returns the effective tuning
func (o *Orchestrator) Config() Config { return o.cfg }

// State returns the current cycle state
func (o *Orchestrator) State() State { return o.state }

// CoolingDown returns true if a line was emitted less than the cooldown ago
func (o *Orchestrator) CoolingDown(now int64) bool {
	return o.emitted && now-o.lastEmitTick < o.cfg.CooldownTicks
}

// LastEmitTick returns the tick of the last emission
func (o *Orchestrator) LastEmitTick() (int64, bool) { return o.lastEmitTick, o.emitted }

// PendingTransitions returns how many milestone lines are queued
func (o *Orchestrator) PendingTransitions() int { return o.pending.Count() }

// RecentUsage returns the recent template window for a category
func (o *Orchestrator) RecentUsage(category templates.Category) []variety.Entry {
	return o.recent.Recent(category)
}

// Decisions returns the recent speak-or-skip decisions, oldest first
func (o *Orchestrator) Decisions() []Decision { return o.decisions.recent() }

// Stats summarises the decisions so far, with at most top trigger counts
func (o *Orchestrator) Stats(top int) Stats { return o.decisions.stats(top) }

// Handle offers an event to the character and returns the line it says, if any
func (o *Orchestrator) Handle(ev GameEvent, ctx GameContext) (string, bool) {
	now := ctx.Tick
	o.settle(now)
	o.state = StateEvaluating

	decision := Decision{Tick: now, Event: ev.Type, Rapport: ctx.rapport()}
	skip := func(reason SkipReason) (string, bool) {
		decision.Reason = reason
		o.decisions.record(decision)
		o.rest(now)
		return "", false
	}

	level, ok := o.filter.Interested(o.character.Profile.Specialization(), ev.Type)
	if !ok {
		o.log.Debug("event ignored", "event", ev.Type, "interest", level)
		return skip(SkipUninterested)
	}

	req := request{
		category: CategoryFor(ev.Type),
		stage:    ctx.stage(),
		event:    ev.Type,
		severity: ev.Severity,
		fraction: ctx.Fraction,
	}

	var assessment urgency.Assessment
	tracker := o.observe(ev, ctx)
	if tracker != nil {
		assessment = tracker.Assess(now)
		if !assessment.Due {
			o.log.Debug("urgency not due", "quantity", ev.QuantityID, "stage", assessment.Stage)
			return skip(SkipNotDue)
		}
		req.withTracker(tracker, assessment.Stage)
		if ctx.SubjectName != "" {
			req.subject = ctx.SubjectName
		}
	}

	bypass := ev.Type == interest.EventDanger || assessment.BypassCooldown
	if o.CoolingDown(now) && !bypass {
		o.log.Debug("suppressed by cooldown", "event", ev.Type, "last_emit", o.lastEmitTick)
		return skip(SkipCooldown)
	}

	utt := o.compose(req, ctx)
	o.emit(utt)
	if tracker != nil {
		tracker.MarkReported(now)
	}
	decision.Spoke = true
	decision.TemplateID = utt.TemplateID
	o.decisions.record(decision)
	return utt.Text, true
}

// Tick advances the character's clock. Outside cooldown it says at most one
// queued stage-transition line, or else an overdue urgency report.
func (o *Orchestrator) Tick(ctx GameContext) (string, bool) {
	now := ctx.Tick
	o.settle(now)
	if o.CoolingDown(now) {
		return "", false
	}

	if tr, ok := o.pending.Pop(); ok {
		o.state = StateEvaluating
		req := request{category: templates.CategoryMilestone, stage: tr.After}
		utt := o.compose(req, ctx)
		o.emit(utt)
		o.decisions.unprompted++
		return utt.Text, true
	}

	id, tracker, assessment := o.dueQuantity(now)
	if tracker == nil {
		return "", false
	}
	o.state = StateEvaluating
	req := request{
		category: templates.CategoryWarning,
		stage:    ctx.stage(),
		event:    eventForKind(tracker.Kind()),
	}
	req.withTracker(tracker, assessment.Stage)
	utt := o.compose(req, ctx)
	o.emit(utt)
	tracker.MarkReported(now)
	o.decisions.unprompted++
	o.log.Debug("overdue urgency reported", "quantity", id, "stage", assessment.Stage, "repeat", assessment.Repeat)
	return utt.Text, true
}

// NoteTransition queues a one-time line for an improved relationship stage.
// Transitions that do not move up a stage are ignored.
func (o *Orchestrator) NoteTransition(tr relationship.Transition) bool {
	if !tr.Crossed() || !tr.Improved() {
		return false
	}
	o.pending.Enqueue(tr)
	o.log.Debug("stage transition queued", "from", tr.Before, "to", tr.After)
	return true
}

// Track starts tracking a quantity, replacing any existing tracker
func (o *Orchestrator) Track(id string, kind urgency.Kind, name string, fraction float64) *urgency.Tracker {
	t := urgency.NewTracker(kind, name, fraction, o.cfg.CriticalRepeatTicks)
	o.trackers[id] = t
	return t
}

// Quantity returns the tracker for a quantity
func (o *Orchestrator) Quantity(id string) (*urgency.Tracker, bool) {
	t, ok := o.trackers[id]
	return t, ok
}

// Quantities returns the tracked quantity IDs in sorted order
func (o *Orchestrator) Quantities() []string {
	ids := make([]string, 0, len(o.trackers))
	for id := range o.trackers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Replenish refills a tracked quantity and resets its warning cycle
func (o *Orchestrator) Replenish(id string, amount float64, now int64) (urgency.Assessment, bool) {
	t, ok := o.trackers[id]
	if !ok {
		return urgency.Assessment{}, false
	}
	return t.Replenish(amount, now), true
}

// Forget destroys the tracker of a quantity that left the inventory
func (o *Orchestrator) Forget(id string) bool {
	if _, ok := o.trackers[id]; !ok {
		return false
	}
	delete(o.trackers, id)
	return true
}

// request is everything compose needs to choose a line
type request struct {
	category templates.Category
	stage    relationship.Stage
	urgency  *urgency.Stage
	event    interest.EventType
	severity float64
	kind     urgency.Kind
	subject  string
	fraction *float64
}

func (r *request) withTracker(t *urgency.Tracker, stage urgency.Stage) {
	u := stage
	f := t.Fraction()
	r.urgency = &u
	r.kind = t.Kind()
	r.subject = t.Name()
	r.fraction = &f
}

// observe updates or creates the tracker an event concerns. Events without a
// quantity, or for an unknown quantity with no observed fraction, return nil.
func (o *Orchestrator) observe(ev GameEvent, ctx GameContext) *urgency.Tracker {
	if ev.QuantityID == "" {
		return nil
	}
	t, ok := o.trackers[ev.QuantityID]
	if !ok {
		if ctx.Fraction == nil {
			return nil
		}
		kind := ev.QuantityKind
		if kind == "" {
			kind = kindForEvent(ev.Type)
		}
		name := ctx.SubjectName
		if name == "" {
			name = ev.QuantityID
		}
		return o.Track(ev.QuantityID, kind, name, *ctx.Fraction)
	}
	if ctx.Fraction != nil {
		t.Observe(*ctx.Fraction, ctx.Tick)
	}
	return t
}

// dueQuantity returns the most depleted tracker with a report due
func (o *Orchestrator) dueQuantity(now int64) (string, *urgency.Tracker, urgency.Assessment) {
	var (
		bestID string
		best   *urgency.Tracker
		bestA  urgency.Assessment
	)
	for _, id := range o.Quantities() {
		t := o.trackers[id]
		a := t.Assess(now)
		if !a.Due {
			continue
		}
		if best == nil || a.Stage.MoreDepletedThan(bestA.Stage) {
			bestID, best, bestA = id, t, a
		}
	}
	return bestID, best, bestA
}

func (o *Orchestrator) compose(req request, ctx GameContext) Utterance {
	profile := o.character.Profile
	env := o.env(req, ctx)
	humorOK := profile.HumorAffinity() >= o.cfg.HumorGate() &&
		(req.urgency == nil || !req.urgency.MoreDepletedThan(urgency.StageLow))

	accept := func(t *templates.Template) bool {
		if t.Humor && !humorOK {
			return false
		}
		if !t.AllowsVoice(profile.Voice()) {
			return false
		}
		return t.Matches(env)
	}

	tiers := o.library.LookupTiers(templates.Query{
		Category:  req.category,
		Archetype: profile.Specialization(),
		Stage:     req.stage,
		Urgency:   req.urgency,
	}, accept)

	subject := ctx
	if req.subject != "" {
		subject.SubjectName = req.subject
	}
	values := slotValues(o.character.Name, subject, req.kind, req.fraction)

	utt := Utterance{
		CharacterID: o.character.ID,
		Category:    req.category,
		Tick:        ctx.Tick,
		Event:       req.event,
		Stage:       req.stage,
		Urgency:     req.urgency,
	}

	// step down tier by tier until some template fills
	for _, candidates := range tiers {
		for len(candidates) > 0 {
			pick := o.selector.Pick(candidates, o.recent, req.category)
			text, err := pick.Fill(values)
			if err == nil {
				utt.TemplateID = pick.ID
				utt.Text = text
				return utt
			}
			o.log.Debug("template rejected", "template", pick.ID, "error", err)
			candidates = without(candidates, pick)
		}
	}

	o.log.Debug("using fallback line", "category", req.category, "stage", req.stage)
	o.decisions.fallbacks++
	utt.Text = FallbackLine(req.category)
	utt.Fallback = true
	return utt
}

func (o *Orchestrator) env(req request, ctx GameContext) map[string]any {
	env := o.character.Profile.Env()
	env["rapport"] = ctx.rapport()
	env["stage"] = req.stage.String()
	env["event"] = string(req.event)
	env["severity"] = req.severity
	if req.urgency != nil {
		env["urgency"] = req.urgency.String()
	}
	if req.fraction != nil {
		env["fraction"] = *req.fraction
	}
	return env
}

func (o *Orchestrator) emit(utt Utterance) {
	o.state = StateEmitting
	if !utt.Fallback {
		o.recent.Record(utt.Category, utt.TemplateID, utt.Tick)
	}
	o.emitted = true
	o.lastEmitTick = utt.Tick
	o.state = StateCoolingDown
	o.log.Debug("line emitted", "category", utt.Category, "template", utt.TemplateID, "tick", utt.Tick)
	if o.sink != nil {
		o.sink(utt)
	}
}

// settle expires recency entries and ends an elapsed cooldown
func (o *Orchestrator) settle(now int64) {
	o.recent.Decay(now, o.cfg.RecencyDecayTicks)
	o.rest(now)
}

// rest returns to Idle, or stays CoolingDown while the cooldown runs
func (o *Orchestrator) rest(now int64) {
	if o.CoolingDown(now) {
		o.state = StateCoolingDown
		return
	}
	o.state = StateIdle
}

func without(list []*templates.Template, drop *templates.Template) []*templates.Template {
	out := make([]*templates.Template, 0, len(list))
	for _, t := range list {
		if t != drop {
			out = append(out, t)
		}
	}
	return out
}

func kindForEvent(ev interest.EventType) urgency.Kind {
	if ev == interest.EventResourceLow {
		return urgency.KindResource
	}
	return urgency.KindTool
}

func eventForKind(k urgency.Kind) interest.EventType {
	if k == urgency.KindResource {
		return interest.EventResourceLow
	}
	return interest.EventToolWear
}
