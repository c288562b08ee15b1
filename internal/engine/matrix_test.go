package engine

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/moa/internal/ir"
)

func TestBuild_Layout(t *testing.T) {
	m := buildCar(t)
	l := m.Layout()

	require.Len(t, l.Categories, 2)
	assert.Equal(t, "Drivetrain", l.Categories[0].Label)
	assert.Equal(t, "interior", l.Categories[1].Label, "label falls back to name")

	require.Len(t, l.Categories[0].Choices, 2)
	engineRow := l.Categories[0].Choices[0]
	assert.Equal(t, "Engine", engineRow.Label)
	require.Len(t, engineRow.Options, 3)
	assert.Equal(t, "petrol", engineRow.Options[0].Name)
	assert.Equal(t, "electric", engineRow.Options[2].Name)

	require.Len(t, l.Filters, 1)
	assert.Equal(t, "Weight (kg)", l.Filters[0].Label())
	assert.Equal(t, 10.0, l.Filters[0].Step())
}

func TestBuild_WiresEachChoiceOnce(t *testing.T) {
	m := buildCar(t)
	for _, ch := range m.Choices() {
		assert.True(t, ch.Wired(), ch.Name)
	}
	petrol := mustOption(t, m, "petrol")
	assert.Len(t, petrol.Incompatibilities(), 2)
	assert.Empty(t, mustOption(t, m, "leather").Incompatibilities())
	assert.False(t, petrol.IsIncompatibleWith(mustOption(t, m, "manual")), "no edges across choices")
}

func TestBuild_ConfigErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *ir.Catalog)
		want   ConfigErrorCode
	}{
		{
			name:   "duplicate option",
			mutate: func(c *ir.Catalog) { c.Options = append(c.Options, ir.OptionSpec{Number: 9, Name: "petrol"}) },
			want:   ErrCodeDuplicateName,
		},
		{
			name: "duplicate choice",
			mutate: func(c *ir.Catalog) {
				c.Choices = append(c.Choices, ir.ChoiceSpec{Name: "seats", Options: []string{"leather"}})
			},
			want: ErrCodeDuplicateName,
		},
		{
			name: "duplicate option after NFC",
			mutate: func(c *ir.Catalog) {
				c.Options = append(c.Options,
					ir.OptionSpec{Number: 9, Name: "cafe\u0301"},
					ir.OptionSpec{Number: 10, Name: "caf\u00e9"})
			},
			want: ErrCodeDuplicateName,
		},
		{
			name: "duplicate category",
			mutate: func(c *ir.Catalog) {
				c.Categories = append(c.Categories, ir.CategorySpec{Name: "interior"})
			},
			want: ErrCodeDuplicateName,
		},
		{
			name:   "duplicate filter",
			mutate: func(c *ir.Catalog) { c.Filters = append(c.Filters, c.Filters[0]) },
			want:   ErrCodeDuplicateName,
		},
		{
			name:   "unknown option in choice",
			mutate: func(c *ir.Catalog) { c.Choices[2].Options = append(c.Choices[2].Options, "cloth") },
			want:   ErrCodeUnknownReference,
		},
		{
			name:   "unknown choice in category",
			mutate: func(c *ir.Catalog) { c.Categories[1].Choices = append(c.Categories[1].Choices, "roof") },
			want:   ErrCodeUnknownReference,
		},
		{
			name:   "unknown option in filter",
			mutate: func(c *ir.Catalog) { c.Filters[0].Options = append(c.Filters[0].Options, "hydrogen") },
			want:   ErrCodeUnknownReference,
		},
		{
			name:   "empty choice",
			mutate: func(c *ir.Catalog) { c.Choices = append(c.Choices, ir.ChoiceSpec{Name: "roof"}) },
			want:   ErrCodeEmptyChoice,
		},
		{
			name:   "option in two choices",
			mutate: func(c *ir.Catalog) { c.Choices[2].Options = append(c.Choices[2].Options, "manual") },
			want:   ErrCodeSharedMember,
		},
		{
			name:   "choice in two categories",
			mutate: func(c *ir.Catalog) { c.Categories[1].Choices = append(c.Categories[1].Choices, "engine") },
			want:   ErrCodeSharedMember,
		},
		{
			name:   "filter min above max",
			mutate: func(c *ir.Catalog) { c.Filters[0].Min, c.Filters[0].Max = 500, 100 },
			want:   ErrCodeInvalidRange,
		},
		{
			name:   "NaN limit",
			mutate: func(c *ir.Catalog) { c.Options[0].Limits["weight"] = math.NaN() },
			want:   ErrCodeInvalidLimit,
		},
		{
			name:   "infinite limit",
			mutate: func(c *ir.Catalog) { c.Options[2].Limits["weight"] = math.Inf(1) },
			want:   ErrCodeInvalidLimit,
		},
		{
			name:   "missing limit",
			mutate: func(c *ir.Catalog) { c.Filters[0].Options = append(c.Filters[0].Options, "manual") },
			want:   ErrCodeMissingLimit,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := carCatalog()
			tt.mutate(c)

			m, err := Build(c, WithBuildLogger(quietLogger()))
			require.Error(t, err)
			assert.Nil(t, m, "no partial matrix")
			assert.True(t, IsConfigError(err))

			var codes []ConfigErrorCode
			for _, ce := range ConfigErrors(err) {
				codes = append(codes, ce.Code)
			}
			assert.Contains(t, codes, tt.want)
		})
	}
}

func TestBuild_CollectsAllErrors(t *testing.T) {
	c := carCatalog()
	c.Choices = append(c.Choices, ir.ChoiceSpec{Name: "roof"})
	c.Filters[0].Min, c.Filters[0].Max = 9, 1

	_, err := Build(c, WithBuildLogger(quietLogger()))
	require.Error(t, err)
	assert.Len(t, ConfigErrors(err), 2)
}

func TestBuild_FilterEvaluatesFullRange(t *testing.T) {
	c := carCatalog()
	c.Filters[0].Max = 250

	rec := &recorder{}
	m, err := Build(c, WithBuildLogger(quietLogger()), WithObserver(rec))
	require.NoError(t, err)

	assert.False(t, mustOption(t, m, "diesel").Disabled())
	electric := mustOption(t, m, "electric")
	assert.True(t, electric.Disabled())
	assert.Equal(t, []Reason{{Kind: ReasonFilter, Source: "weight"}}, electric.Reasons())
	assert.Empty(t, rec.options, "build-time evaluation is not reported")
}

func TestMatrix_ToggleByName(t *testing.T) {
	m := buildCar(t)

	require.NoError(t, m.Toggle("diesel", true))
	assert.True(t, mustOption(t, m, "petrol").Disabled())

	err := m.Toggle("petrol", true)
	assert.True(t, errors.Is(err, ErrOptionDisabled))

	err = m.Toggle("hydrogen", true)
	assert.True(t, errors.Is(err, ErrUnknownOption))

	err = m.SetRange("length", 0, 1)
	assert.True(t, errors.Is(err, ErrUnknownFilter))
}

func TestBuild_NonFiniteLimitReportedOnce(t *testing.T) {
	c := carCatalog()
	c.Options[0].Limits["weight"] = math.NaN()

	_, err := Build(c, WithBuildLogger(quietLogger()))
	require.Error(t, err)

	errs := ConfigErrors(err)
	require.Len(t, errs, 1, "the filter does not also report a missing limit")
	assert.Equal(t, ErrCodeInvalidLimit, errs[0].Code)
	assert.Equal(t, "petrol", errs[0].Name)
}

func TestMatrix_LookupsUseNFC(t *testing.T) {
	decomposed, composed := "cafe\u0301", "caf\u00e9"
	c := &ir.Catalog{
		Categories: []ir.CategorySpec{{Name: "drinks", Choices: []string{decomposed}}},
		Choices:    []ir.ChoiceSpec{{Name: decomposed, Options: []string{decomposed, "tea"}}},
		Options: []ir.OptionSpec{
			{Number: 1, Name: decomposed, Limits: map[string]float64{"cr\u00e8me": 5}},
			{Number: 2, Name: "tea", Limits: map[string]float64{"cre\u0300me": 1}},
		},
		Filters: []ir.FilterSpec{{Name: "cre\u0300me", Min: 0, Max: 10, Step: 1, Options: []string{"tea", composed}}},
	}
	m, err := Build(c, WithBuildLogger(quietLogger()))
	require.NoError(t, err)

	for _, name := range []string{decomposed, composed} {
		o, ok := m.Option(name)
		require.True(t, ok, "%q", name)
		assert.Equal(t, composed, o.Name)
		_, ok = m.Choice(name)
		assert.True(t, ok, "%q", name)
	}

	require.NoError(t, m.Toggle(decomposed, true))
	assert.True(t, mustOption(t, m, composed).Selected())
	assert.True(t, mustOption(t, m, "tea").Disabled())

	require.NoError(t, m.SetRange("cr\u00e8me", 0, 2))
	assert.False(t, mustOption(t, m, composed).Selected(), "filter deselects the excluded option")
	f, ok := m.Filter("cre\u0300me")
	require.True(t, ok)
	assert.Equal(t, "cr\u00e8me", f.Name)
}

func TestMatrix_ObserverSeesFlipsOnly(t *testing.T) {
	rec := &recorder{}
	m := buildCar(t, WithObserver(rec))

	require.NoError(t, m.Toggle("petrol", true))
	assert.Equal(t, []string{"petrol", "diesel", "electric"}, rec.names())
	assert.True(t, rec.options[0].Selected)
	assert.True(t, rec.options[1].Disabled)

	// diesel and electric are already disabled; a second reason is not a flip.
	rec.options = nil
	require.NoError(t, m.SetRange("weight", 0, 200))
	assert.Empty(t, rec.options)
	require.Len(t, rec.filters, 1)
	assert.Equal(t, []string{"diesel", "electric"}, rec.filters[0].Excluded)

	rec.options = nil
	require.NoError(t, m.Toggle("petrol", false))
	assert.Equal(t, []string{"petrol"}, rec.names(), "siblings stay disabled by the filter")
}

func TestMatrix_RoundTripRestoresState(t *testing.T) {
	m := buildCar(t)
	before := m.Snapshot()

	require.NoError(t, m.Toggle("electric", true))
	require.NoError(t, m.Toggle("automatic", true))
	require.NoError(t, m.SetRange("weight", 100, 250))
	require.NoError(t, m.SetRange("weight", 0, 400))
	require.NoError(t, m.Toggle("automatic", false))

	require.NoError(t, m.CheckInvariants())
	assert.False(t, mustOption(t, m, "electric").Selected(), "filter deselected electric")
	assert.Equal(t, before, m.Snapshot())
}

func TestMatrix_InvariantsHoldUnderRandomInteraction(t *testing.T) {
	m := buildCar(t)
	rng := rand.New(rand.NewSource(7))
	options := m.Options()

	for i := 0; i < 2000; i++ {
		if rng.Intn(4) == 0 {
			low := float64(rng.Intn(450)) - 25
			high := float64(rng.Intn(450)) - 25
			require.NoError(t, m.SetRange("weight", low, high))
		} else {
			o := options[rng.Intn(len(options))]
			err := o.SetSelected(rng.Intn(2) == 0)
			if err != nil {
				require.ErrorIs(t, err, ErrOptionDisabled)
			}
		}
		require.NoError(t, m.CheckInvariants(), "step %d", i)

		for _, o := range options {
			assert.GreaterOrEqual(t, o.IncompatibilityCount(), 0)
		}
		for _, ch := range m.Choices() {
			selected := 0
			for _, o := range ch.Options() {
				if o.Selected() {
					selected++
				}
			}
			require.LessOrEqual(t, selected, 1, "choice %s", ch.Name)
		}
	}
}

func TestMatrix_CheckInvariantsDetectsStaleState(t *testing.T) {
	m := buildCar(t)
	require.NoError(t, m.Toggle("petrol", true))

	diesel := mustOption(t, m, "diesel")
	delete(diesel.reasons, Reason{Kind: ReasonSibling, Source: "petrol"})

	err := m.CheckInvariants()
	require.Error(t, err)
	assert.True(t, IsInvariantViolation(err))
	assert.Contains(t, err.Error(), "diesel")
}

func TestMatrix_Lookups(t *testing.T) {
	m := buildCar(t)

	ch, ok := m.Choice("gearbox")
	require.True(t, ok)
	assert.Equal(t, "Gearbox", ch.Label())

	f, ok := m.Filter("weight")
	require.True(t, ok)
	min, max := f.FullRange()
	assert.Equal(t, 0.0, min)
	assert.Equal(t, 400.0, max)

	_, ok = m.Option("nope")
	assert.False(t, ok)

	cats := m.Categories()
	require.Len(t, cats, 2)
	seats, ok := cats[1].Choice("seats")
	require.True(t, ok)
	assert.Len(t, seats.Options(), 1)
}
