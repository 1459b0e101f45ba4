package validation_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/goccy/go-reflect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/x-research-team/dtx-logic/resolve"
	"github.com/x-research-team/dtx-logic/result"
	"github.com/x-research-team/dtx-logic/validation"
)

// Журнал вызовов правил.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, name)
}

func (l *callLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

// Тестовое правило, записывающее вызов и возвращающее заданный исход.
type recordingRule struct {
	name string
	log  *callLog
	fail bool
	err  error
}

func (r *recordingRule) check(data string) (result.Result, error) {
	r.log.add(r.name + ":" + data)
	if r.err != nil {
		return result.Result{}, r.err
	}
	if r.fail {
		return result.FailureKey(r.name, "правило "+r.name+" не пройдено"), nil
	}
	return result.Success(), nil
}

type ruleA struct{ recordingRule }

func (r *ruleA) Validate(_ context.Context, data string) (result.Result, error) { return r.check(data) }

type ruleB struct{ recordingRule }

func (r *ruleB) Validate(_ context.Context, data string) (result.Result, error) { return r.check(data) }

type ruleC struct{ recordingRule }

func (r *ruleC) Validate(_ context.Context, data string) (result.Result, error) { return r.check(data) }

// Правило, не зарегистрированное в контейнере.
type orphanRule struct{}

func (orphanRule) Validate(context.Context, string) (result.Result, error) {
	return result.Success(), nil
}

type rules struct {
	log *callLog
	a   *ruleA
	b   *ruleB
	c   *ruleC
}

func newRules(t *testing.T) (*rules, *resolve.Container) {
	t.Helper()

	log := &callLog{}
	r := &rules{
		log: log,
		a:   &ruleA{recordingRule{name: "A", log: log}},
		b:   &ruleB{recordingRule{name: "B", log: log}},
		c:   &ruleC{recordingRule{name: "C", log: log}},
	}

	c := resolve.NewContainer()
	require.NoError(t, resolve.Instance(c, r.a))
	require.NoError(t, resolve.Instance(c, r.b))
	require.NoError(t, resolve.Instance(c, r.c))
	return r, c
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newValidator(t *testing.T, resolver resolve.Resolver, opts ...validation.Option) *validation.Validator {
	t.Helper()
	v, err := validation.New(resolver, append([]validation.Option{validation.WithLogger(quietLogger())}, opts...)...)
	require.NoError(t, err)
	return v
}

func TestValidator_Order(t *testing.T) {
	t.Parallel()

	t.Run("группы по возрастанию, приоритет по убыванию", func(t *testing.T) {
		t.Parallel()

		r, c := newRules(t)
		v := newValidator(t, c)

		validation.Require[*ruleC, string](v).WithData("c")
		validation.Require[*ruleA, string](v).WithData("a").WithinGroup(1).WithPriority(1)
		validation.Require[*ruleB, string](v).WithData("b").WithinGroup(1).WithPriority(5)

		res, err := v.Validate(context.Background())
		require.NoError(t, err)
		assert.True(t, res.Succeeded())
		assert.Equal(t, []string{"B:b", "A:a", "C:c"}, r.log.list(), "правила без группы выполняются последними")
	})

	t.Run("без приоритета после приоритетных, порядок добавления сохраняется", func(t *testing.T) {
		t.Parallel()

		r, c := newRules(t)
		v := newValidator(t, c)

		validation.Require[*ruleA, string](v).WithData("1").WithinGroup(2)
		validation.Require[*ruleB, string](v).WithData("2").WithinGroup(2)
		validation.Require[*ruleC, string](v).WithData("3").WithinGroup(2).WithPriority(-10)
		validation.Require[*ruleA, string](v).WithData("4").WithinGroup(0)

		_, err := v.Validate(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"A:4", "C:3", "A:1", "B:2"}, r.log.list())
	})
}

func TestValidator_StopIfFailed(t *testing.T) {
	t.Parallel()

	t.Run("останавливает группу", func(t *testing.T) {
		t.Parallel()

		r, c := newRules(t)
		r.a.fail = true
		v := newValidator(t, c)

		v = validation.Require[*ruleA, string](v).WithData("a").WithinGroup(1).WithPriority(2).StopIfFailed().Validator()
		validation.Require[*ruleB, string](v).WithData("b").WithinGroup(1).WithPriority(1)

		res, err := v.Validate(context.Background())
		require.NoError(t, err)
		assert.True(t, res.Failed())
		assert.Equal(t, []string{"A:a"}, r.log.list())
		assert.True(t, res.Errors().Has("A"))
	})

	t.Run("без флага группа выполняется до конца", func(t *testing.T) {
		t.Parallel()

		r, c := newRules(t)
		r.a.fail = true
		r.b.fail = true
		v := newValidator(t, c)

		validation.Require[*ruleA, string](v).WithData("a").WithinGroup(1).WithPriority(2)
		validation.Require[*ruleB, string](v).WithData("b").WithinGroup(1).WithPriority(1)
		validation.Require[*ruleC, string](v).WithData("c").WithinGroup(2)

		res, err := v.Validate(context.Background())
		require.NoError(t, err)
		assert.True(t, res.Failed())
		assert.Equal(t, []string{"A:a", "B:b"}, r.log.list(), "неуспешная группа останавливает следующие группы")
		assert.Equal(t, []string{"A", "B"}, res.Errors().Keys())
	})

	t.Run("успешная группа не останавливает проход", func(t *testing.T) {
		t.Parallel()

		r, c := newRules(t)
		r.c.fail = true
		v := newValidator(t, c)

		validation.Require[*ruleA, string](v).WithData("a").WithinGroup(1).StopIfFailed()
		validation.Require[*ruleC, string](v).WithData("c").WithinGroup(2)

		res, err := v.Validate(context.Background())
		require.NoError(t, err)
		assert.True(t, res.Failed())
		assert.Equal(t, []string{"A:a", "C:c"}, r.log.list())
	})
}

func TestValidator_LazyData(t *testing.T) {
	t.Parallel()

	t.Run("вычисляется один раз при выполнении", func(t *testing.T) {
		t.Parallel()

		r, c := newRules(t)
		v := newValidator(t, c)

		calls := 0
		validation.Require[*ruleA, string](v).WithDataFunc(func() string {
			calls++
			return "lazy"
		})

		_, err := v.Validate(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, calls)
		assert.Equal(t, []string{"A:lazy"}, r.log.list())
	})

	t.Run("не вычисляется для пропущенного правила", func(t *testing.T) {
		t.Parallel()

		r, c := newRules(t)
		r.a.fail = true
		v := newValidator(t, c)

		calls := 0
		validation.Require[*ruleA, string](v).WithData("a").WithinGroup(1)
		validation.Require[*ruleB, string](v).WithinGroup(2).WithDataFunc(func() string {
			calls++
			return "b"
		})

		_, err := v.Validate(context.Background())
		require.NoError(t, err)
		assert.Zero(t, calls, "данные пропущенного правила не должны вычисляться")
	})
}

func TestValidator_Consumption(t *testing.T) {
	t.Parallel()

	r, c := newRules(t)
	r.a.fail = true
	v := newValidator(t, c)

	validation.Require[*ruleA, string](v).WithData("a")

	res, err := v.Validate(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Failed())

	res, err = v.Validate(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Succeeded(), "повторный проход без новых правил должен быть успешным")
	assert.Len(t, r.log.list(), 1)
}

func TestValidator_Empty(t *testing.T) {
	t.Parallel()

	v := newValidator(t, resolve.NewContainer())
	res, err := v.Validate(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Succeeded())
	assert.Zero(t, res.Errors().Len())
}

func TestValidator_Errors(t *testing.T) {
	t.Parallel()

	t.Run("правило не разрешено", func(t *testing.T) {
		t.Parallel()

		_, c := newRules(t)
		v := newValidator(t, c)
		validation.Require[orphanRule, string](v).WithData("x")

		_, err := v.Validate(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, validation.ErrRuleNotResolved)
	})

	t.Run("резолвер вернул чужой тип", func(t *testing.T) {
		t.Parallel()

		resolver := resolve.Func(func(_ reflect.Type) (any, bool) { return "не правило", true })
		v := newValidator(t, resolver)
		validation.Require[*ruleA, string](v)

		_, err := v.Validate(context.Background())
		assert.ErrorIs(t, err, validation.ErrRuleNotResolved)
	})

	t.Run("ошибка правила прерывает проход", func(t *testing.T) {
		t.Parallel()

		r, c := newRules(t)
		boom := errors.New("сбой правила")
		r.a.err = boom
		v := newValidator(t, c)

		validation.Require[*ruleA, string](v).WithData("a").WithinGroup(1)
		validation.Require[*ruleB, string](v).WithData("b").WithinGroup(1)

		_, err := v.Validate(context.Background())
		assert.Same(t, boom, err)
		assert.Equal(t, []string{"A:a"}, r.log.list())
	})

	t.Run("nil резолвер", func(t *testing.T) {
		t.Parallel()

		_, err := validation.New(nil)
		assert.Error(t, err)
	})
}

func TestValidator_EnsureValid(t *testing.T) {
	t.Parallel()

	r, c := newRules(t)
	r.b.fail = true
	v := newValidator(t, c)

	validation.Require[*ruleA, string](v).WithData("a")
	validation.Require[*ruleB, string](v).WithData("b")

	err := v.EnsureValid(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, validation.ErrValidationFailed)

	var failed *validation.FailedError
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, []string{"правило B не пройдено"}, failed.Result.Errors().Get("B"))
	assert.Contains(t, err.Error(), "B: правило B не пройдено")

	assert.NoError(t, v.EnsureValid(context.Background()))
}

func TestValidator_ConcurrentConfiguration(t *testing.T) {
	t.Parallel()

	r, c := newRules(t)
	v := newValidator(t, c)

	const workers = 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			validation.Require[*ruleA, string](v).WithData("a").WithinGroup(validation.Group(i % 3)).WithPriority(1).StopIfFailed()
		}()
		go func() {
			defer wg.Done()
			_, err := v.Validate(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	_, err := v.Validate(context.Background())
	require.NoError(t, err)
	assert.Len(t, r.log.list(), workers, "каждое добавленное правило должно выполниться ровно один раз")
}

func TestFactory(t *testing.T) {
	t.Parallel()

	r, c := newRules(t)
	f, err := validation.NewFactory(c, validation.WithLogger(quietLogger()))
	require.NoError(t, err)

	first := f.New()
	second := f.New()
	validation.Require[*ruleA, string](first).WithData("first")

	res, err := second.Validate(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Succeeded())
	assert.Empty(t, r.log.list(), "валидаторы фабрики не должны разделять правила")

	_, err = first.Validate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"A:first"}, r.log.list())
}

func TestValidator_Telemetry(t *testing.T) {
	t.Parallel()

	r, c := newRules(t)
	r.b.fail = true

	recorder := tracetest.NewSpanRecorder()
	reader := sdkmetric.NewManualReader()
	v := newValidator(t, c,
		validation.WithTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))),
		validation.WithMeterProvider(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))),
	)

	validation.Require[*ruleA, string](v).WithData("a")
	validation.Require[*ruleB, string](v).WithData("b")

	ctx := context.Background()
	_, err := v.Validate(ctx)
	require.NoError(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1, "на проход должен создаваться один спан")
	assert.Equal(t, "validation validate", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	byRule := map[string]string{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok || m.Name != "validation.rule.count" {
				continue
			}
			for _, dp := range sum.DataPoints {
				rule, _ := dp.Attributes.Value(attribute.Key("rule"))
				status, _ := dp.Attributes.Value(attribute.Key("status"))
				byRule[rule.AsString()] = status.AsString()
			}
		}
	}
	assert.Equal(t, map[string]string{"ruleA": "success", "ruleB": "failure"}, byRule)
}

func BenchmarkValidator_Validate(b *testing.B) {
	c := resolve.NewContainer()
	_ = resolve.Instance(c, orphanRule{})
	f, _ := validation.NewFactory(c, validation.WithLogger(quietLogger()))

	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		v := f.New()
		validation.Require[orphanRule, string](v).WithData("a").WithinGroup(1)
		_, _ = v.Validate(ctx)
	}
}
