package policy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPolicyIsAllowed(t *testing.T) {
	testCases := []struct {
		description string
		policy      *Policy
		name        string
		expect      bool
	}{
		{
			description: "nil policy allows everything",
			name:        "rm",
			expect:      true,
		},
		{
			description: "empty lists allow everything",
			policy:      &Policy{},
			name:        "ls",
			expect:      true,
		},
		{
			description: "block list rejects by name",
			policy:      &Policy{BlockList: []string{"rm"}},
			name:        "rm",
			expect:      false,
		},
		{
			description: "block list matches base name of a path",
			policy:      &Policy{BlockList: []string{"sh"}},
			name:        "/bin/sh",
			expect:      false,
		},
		{
			description: "block list is case-insensitive",
			policy:      &Policy{BlockList: []string{"RM"}},
			name:        "rm",
			expect:      false,
		},
		{
			description: "allow list admits listed entries",
			policy:      &Policy{AllowList: []string{"ls", "cat"}},
			name:        "cat",
			expect:      true,
		},
		{
			description: "allow list rejects unlisted entries",
			policy:      &Policy{AllowList: []string{"ls"}},
			name:        "rm",
			expect:      false,
		},
		{
			description: "block list wins over allow list",
			policy:      &Policy{AllowList: []string{"rm"}, BlockList: []string{"rm"}},
			name:        "rm",
			expect:      false,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			assert.Equal(t, testCase.expect, testCase.policy.IsAllowed(testCase.name))
		})
	}
}

func TestPolicyAllows(t *testing.T) {
	ctx := context.Background()

	var nilPolicy *Policy
	assert.True(t, nilPolicy.Allows(ctx, "anything", nil))

	deny := &Policy{Mode: ModeDeny}
	assert.False(t, deny.Allows(ctx, "ls", nil))

	auto := &Policy{Mode: ModeAuto, BlockList: []string{"rm"}}
	assert.True(t, auto.Allows(ctx, "ls", nil))
	assert.False(t, auto.Allows(ctx, "rm", []string{"-rf", "/"}))

	// Ask mode without a callback rejects; with one, the callback decides.
	ask := &Policy{Mode: ModeAsk}
	assert.False(t, ask.Allows(ctx, "ls", nil))

	var askedName string
	var askedArgs []string
	ask.Ask = func(_ context.Context, name string, args []string, p *Policy) bool {
		askedName = name
		askedArgs = args
		return name == "ls"
	}
	assert.True(t, ask.Allows(ctx, "ls", []string{"-la"}))
	assert.Equal(t, "ls", askedName)
	assert.Equal(t, []string{"-la"}, askedArgs)
	assert.False(t, ask.Allows(ctx, "rm", nil))

	// Lists apply before the ask callback runs.
	asked := false
	gated := &Policy{
		Mode:      ModeAsk,
		BlockList: []string{"rm"},
		Ask: func(context.Context, string, []string, *Policy) bool {
			asked = true
			return true
		},
	}
	assert.False(t, gated.Allows(ctx, "rm", nil))
	assert.False(t, asked)
}

func TestPolicyConfigRoundTrip(t *testing.T) {
	assert.Nil(t, ToConfig(nil))
	assert.Nil(t, FromConfig(nil))

	p := &Policy{
		Mode:      ModeAsk,
		AllowList: []string{"ls"},
		BlockList: []string{"rm"},
		Ask:       func(context.Context, string, []string, *Policy) bool { return true },
	}
	config := ToConfig(p)
	assert.Equal(t, ModeAsk, config.Mode)
	assert.Equal(t, []string{"ls"}, config.AllowList)
	assert.Equal(t, []string{"rm"}, config.BlockList)

	// The callback is not serialisable and does not survive the round trip.
	restored := FromConfig(config)
	assert.Equal(t, p.Mode, restored.Mode)
	assert.Equal(t, p.AllowList, restored.AllowList)
	assert.Equal(t, p.BlockList, restored.BlockList)
	assert.Nil(t, restored.Ask)
}

func TestPolicyContext(t *testing.T) {
	assert.Nil(t, FromContext(context.Background()))

	p := &Policy{Mode: ModeDeny}
	ctx := WithPolicy(context.Background(), p)
	assert.Same(t, p, FromContext(ctx))
}
