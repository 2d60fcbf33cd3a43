// Package prompt builds the bounded, role-tagged context handed to the
// language-model provider for a single turn.
package prompt

import (
	"context"
	"fmt"

	"github.com/antoniostano/aria/internal/history"
	"github.com/antoniostano/aria/internal/memory"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Segment is one role-tagged piece of assembled context.
type Segment struct {
	Role Role   `json:"role"`
	Text string `json:"content"`
}

// Context is the ephemeral per-call provider input: system instructions,
// recalled facts, recent turns, then the new user message. Built fresh every
// turn and never persisted.
type Context struct {
	Segments []Segment
	// Degraded is set when fact recall failed or timed out and the context
	// was assembled without long-term memory.
	Degraded bool
	// FactCount and TurnCount report what survived the budget.
	FactCount int
	TurnCount int
}

// Size is the total character count across all segments.
func (c Context) Size() int {
	n := 0
	for _, s := range c.Segments {
		n += len(s.Text)
	}
	return n
}

// Builder assembles contexts from the history store and the memory gateway.
type Builder struct {
	history      *history.Store
	gateway      *memory.Gateway
	systemPrompt string
	recentTurns  int
	recallLimit  int
	charBudget   int
}

func NewBuilder(hist *history.Store, gateway *memory.Gateway, systemPrompt string, recentTurns, recallLimit, charBudget int) *Builder {
	if recentTurns <= 0 {
		recentTurns = 5
	}
	if charBudget <= 0 {
		charBudget = 6000
	}
	return &Builder{
		history:      hist,
		gateway:      gateway,
		systemPrompt: systemPrompt,
		recentTurns:  recentTurns,
		recallLimit:  recallLimit,
		charBudget:   charBudget,
	}
}

// Assemble builds the context for one turn. Recall is bounded by the gateway's
// timeout; a slow or failing memory provider yields a context without facts,
// never an error.
func (b *Builder) Assemble(ctx context.Context, userID, userText string) Context {
	recall := b.gateway.Recall(ctx, userID, userText, b.recallLimit)
	turns := b.history.Recent(userID, b.recentTurns)

	facts := recall.Facts
	fixed := len(b.systemPrompt) + len(userText)

	// Shed recalled facts first, lowest-ranked first (recall returns them
	// best first), then the oldest turns. The system instructions and the
	// new user message are never dropped.
	for fixed+factsSize(facts)+turnsSize(turns) > b.charBudget && len(facts) > 0 {
		facts = facts[:len(facts)-1]
	}
	for fixed+factsSize(facts)+turnsSize(turns) > b.charBudget && len(turns) > 0 {
		turns = turns[1:]
	}

	segments := make([]Segment, 0, 2+len(facts)+2*len(turns))
	segments = append(segments, Segment{Role: RoleSystem, Text: b.systemPrompt})
	for _, fact := range facts {
		segments = append(segments, Segment{Role: RoleSystem, Text: formatFact(fact)})
	}
	for _, turn := range turns {
		segments = append(segments,
			Segment{Role: RoleUser, Text: turn.UserText},
			Segment{Role: RoleAssistant, Text: turn.AssistantText},
		)
	}
	segments = append(segments, Segment{Role: RoleUser, Text: userText})

	return Context{
		Segments:  segments,
		Degraded:  recall.Degraded,
		FactCount: len(facts),
		TurnCount: len(turns),
	}
}

func formatFact(rec memory.Record) string {
	return fmt.Sprintf("Background about the user: %s", rec.Text)
}

func factsSize(facts []memory.Record) int {
	n := 0
	for _, f := range facts {
		n += len(formatFact(f))
	}
	return n
}

func turnsSize(turns []history.Turn) int {
	n := 0
	for _, t := range turns {
		n += len(t.UserText) + len(t.AssistantText)
	}
	return n
}
