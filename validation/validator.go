package validation

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/goccy/go-reflect"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/x-research-team/dtx-logic/resolve"
	"github.com/x-research-team/dtx-logic/result"
)

const (
	instrumentationName    = "github.com/x-research-team/dtx-logic/validation"
	instrumentationVersion = "0.1.0"
)

// runFunc разрешает правило и вызывает проверку.
type runFunc func(ctx context.Context, resolver resolve.Resolver) (result.Result, error)

// entry — ожидающий вызов правила.
type entry struct {
	ruleType     reflect.Type
	group        *Group
	priority     *Priority
	stopIfFailed bool
	// freeze фиксирует данные правила и возвращает его вызов. Вызывается под
	// блокировкой валидатора.
	freeze func() runFunc
	run    runFunc
}

// Validator накапливает правила через Require и выполняет их в Validate.
// Каждый вызов Validate потребляет накопленные правила.
type Validator struct {
	resolver resolve.Resolver
	logger   *slog.Logger
	tracer   trace.Tracer
	counter  metric.Int64Counter

	mu      sync.Mutex
	entries []*entry
}

// New создает валидатор, разрешающий правила через resolver.
func New(resolver resolve.Resolver, opts ...Option) (*Validator, error) {
	f, err := NewFactory(resolver, opts...)
	if err != nil {
		return nil, err
	}
	return f.New(), nil
}

// Configured настраивает правило, добавленное через Require.
type Configured[D any] struct {
	v *Validator
	e *entry

	data     D
	dataFunc func() D
}

// Require добавляет вызов правила R для данных типа D. Настройка записи
// безопасна для конкурентного использования, но вызов Validate фиксирует
// запись в том виде, в каком она была настроена к этому моменту.
func Require[R Rule[D], D any](v *Validator) *Configured[D] {
	c := &Configured[D]{v: v}
	ruleType := reflect.TypeOf((*R)(nil)).Elem()

	c.e = &entry{
		ruleType: ruleType,
		freeze: func() runFunc {
			data, dataFunc := c.data, c.dataFunc
			return func(ctx context.Context, resolver resolve.Resolver) (result.Result, error) {
				raw, ok := resolver.Resolve(ruleType)
				if !ok || raw == nil {
					return result.Result{}, fmt.Errorf("%w: тип '%s'", ErrRuleNotResolved, ruleType)
				}
				rule, ok := raw.(Rule[D])
				if !ok {
					return result.Result{}, fmt.Errorf("%w: '%s' не реализует правило для '%s'", ErrRuleNotResolved, reflect.TypeOf(raw), reflect.TypeOf((*D)(nil)).Elem())
				}
				if dataFunc != nil {
					data = dataFunc()
				}
				return rule.Validate(ctx, data)
			}
		},
	}

	v.mu.Lock()
	v.entries = append(v.entries, c.e)
	v.mu.Unlock()

	return c
}

// WithData задает данные для проверки.
func (c *Configured[D]) WithData(data D) *Configured[D] {
	c.v.mu.Lock()
	defer c.v.mu.Unlock()
	c.data = data
	c.dataFunc = nil
	return c
}

// WithDataFunc задает ленивый источник данных. Функция вызывается не более
// одного раза и только если правило действительно выполняется.
func (c *Configured[D]) WithDataFunc(fn func() D) *Configured[D] {
	c.v.mu.Lock()
	defer c.v.mu.Unlock()
	c.dataFunc = fn
	return c
}

// WithinGroup помещает правило в группу.
func (c *Configured[D]) WithinGroup(group Group) *Configured[D] {
	c.v.mu.Lock()
	defer c.v.mu.Unlock()
	c.e.group = &group
	return c
}

// WithPriority задает приоритет правила внутри группы.
func (c *Configured[D]) WithPriority(priority Priority) *Configured[D] {
	c.v.mu.Lock()
	defer c.v.mu.Unlock()
	c.e.priority = &priority
	return c
}

// StopIfFailed останавливает выполнение группы, если правило не пройдено.
func (c *Configured[D]) StopIfFailed() *Configured[D] {
	c.v.mu.Lock()
	defer c.v.mu.Unlock()
	c.e.stopIfFailed = true
	return c
}

// Validator возвращает валидатор для продолжения цепочки.
func (c *Configured[D]) Validator() *Validator {
	return c.v
}

// Validate выполняет накопленные правила и объединяет результаты.
// Повторный вызов без новых правил возвращает успех.
func (v *Validator) Validate(ctx context.Context) (res result.Result, err error) {
	v.mu.Lock()
	entries := make([]*entry, 0, len(v.entries))
	for _, e := range v.entries {
		frozen := *e
		frozen.run = e.freeze()
		entries = append(entries, &frozen)
	}
	v.entries = nil
	v.mu.Unlock()

	groups := orderEntries(entries)
	v.logger.Debug("порядок выполнения правил", slog.String("order", describeOrder(groups)))

	ctx, span := v.tracer.Start(ctx, "validation validate", trace.WithAttributes(
		attribute.Int("validation.rules", len(entries)),
		attribute.Int("validation.groups", len(groups)),
	))
	defer func() {
		switch {
		case err != nil:
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		case res.Failed():
			span.SetStatus(codes.Error, ErrValidationFailed.Error())
		}
		span.End()
	}()

	var failures []result.Result
	for _, group := range groups {
		groupFailed := false

		for _, e := range group {
			r, err := e.run(ctx, v.resolver)
			if err != nil {
				return result.Result{}, err
			}

			v.record(ctx, e, r)
			if r.Succeeded() {
				continue
			}

			failures = append(failures, r)
			groupFailed = true
			if e.stopIfFailed {
				break
			}
		}

		if groupFailed {
			break
		}
	}

	if len(failures) == 0 {
		return result.Success(), nil
	}
	return result.Flatten(failures...), nil
}

// EnsureValid выполняет Validate и возвращает *FailedError, если проверка
// не пройдена.
func (v *Validator) EnsureValid(ctx context.Context) error {
	r, err := v.Validate(ctx)
	if err != nil {
		return err
	}
	if r.Failed() {
		return &FailedError{Result: r}
	}
	return nil
}

func (v *Validator) record(ctx context.Context, e *entry, r result.Result) {
	if v.counter == nil {
		return
	}
	status := "success"
	if r.Failed() {
		status = "failure"
	}
	v.counter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("rule", ruleName(e.ruleType)),
		attribute.String("status", status),
	))
}

// orderEntries разбивает правила на группы: по возрастанию номера группы,
// без группы в конце; внутри группы по убыванию приоритета, без приоритета
// в конце. Равные элементы сохраняют порядок добавления.
func orderEntries(entries []*entry) [][]*entry {
	sorted := slices.Clone(entries)
	slices.SortStableFunc(sorted, func(a, b *entry) int {
		if c := compareGroups(a.group, b.group); c != 0 {
			return c
		}
		return comparePriorities(a.priority, b.priority)
	})

	var groups [][]*entry
	for i, e := range sorted {
		if i == 0 || !sameGroup(sorted[i-1].group, e.group) {
			groups = append(groups, nil)
		}
		groups[len(groups)-1] = append(groups[len(groups)-1], e)
	}
	return groups
}

func compareGroups(a, b *Group) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	default:
		return cmp.Compare(*a, *b)
	}
}

func comparePriorities(a, b *Priority) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	default:
		return cmp.Compare(*b, *a)
	}
}

func sameGroup(a, b *Group) bool {
	return compareGroups(a, b) == 0
}

// describeOrder форматирует порядок в виде "группа: правило (приоритет!)",
// где "!" отмечает StopIfFailed.
func describeOrder(groups [][]*entry) string {
	lines := make([]string, 0, len(groups))
	for _, group := range groups {
		key := "none"
		if g := group[0].group; g != nil {
			key = strconv.Itoa(int(*g))
		}

		rules := make([]string, 0, len(group))
		for _, e := range group {
			priority := ""
			if e.priority != nil {
				priority = strconv.Itoa(int(*e.priority))
			}
			if e.stopIfFailed {
				priority += "!"
			}
			rules = append(rules, fmt.Sprintf("%s (%s)", ruleName(e.ruleType), priority))
		}
		lines = append(lines, key+": "+strings.Join(rules, ", "))
	}
	return strings.Join(lines, "; ")
}

func ruleName(t reflect.Type) string {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if name := t.Name(); name != "" {
		return name
	}
	return t.String()
}

// Factory создает валидаторы с общей конфигурацией.
type Factory struct {
	resolver resolve.Resolver
	logger   *slog.Logger
	tracer   trace.Tracer
	counter  metric.Int64Counter
}

// NewFactory создает фабрику валидаторов.
func NewFactory(resolver resolve.Resolver, opts ...Option) (*Factory, error) {
	if resolver == nil {
		return nil, errors.New("резолвер правил не задан")
	}

	cfg := &config{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}

	f := &Factory{
		resolver: resolver,
		logger:   cfg.logger,
		tracer:   noop.NewTracerProvider().Tracer(instrumentationName),
	}

	if cfg.tracerProvider != nil {
		f.tracer = cfg.tracerProvider.Tracer(instrumentationName, trace.WithInstrumentationVersion(instrumentationVersion))
	}

	if cfg.meterProvider != nil {
		meter := cfg.meterProvider.Meter(instrumentationName, metric.WithInstrumentationVersion(instrumentationVersion))
		counter, err := meter.Int64Counter(
			"validation.rule.count",
			metric.WithDescription("Количество выполненных правил валидации"),
			metric.WithUnit("{rules}"),
		)
		if err != nil {
			panic(fmt.Sprintf("не удалось создать счетчик validation.rule.count: %v", err))
		}
		f.counter = counter
	}

	return f, nil
}

// New создает новый пустой валидатор.
func (f *Factory) New() *Validator {
	return &Validator{
		resolver: f.resolver,
		logger:   f.logger,
		tracer:   f.tracer,
		counter:  f.counter,
	}
}
