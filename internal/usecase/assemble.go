package usecase

import (
	"fmt"
	"strings"

	"papertalk/internal/domain"
	"papertalk/internal/logger"
	"papertalk/internal/port"
)

// SourceSeparator joins source blocks in an assembled context.
const SourceSeparator = "\n\n---\n\n"

// ContextAssembler packs ranked chunks into a labelled context block under
// a token budget.
type ContextAssembler struct {
	tokenizer port.Tokenizer
}

func NewContextAssembler(tokenizer port.Tokenizer) *ContextAssembler {
	return &ContextAssembler{tokenizer: tokenizer}
}

// SourceBlock formats the labelled block for the i-th (1-based) source.
func SourceBlock(i int, r domain.SearchResult) string {
	return fmt.Sprintf("[Source %d - Document: %s]\n%s", i, r.DocID, r.Text)
}

// Assemble walks ranked in order and keeps the longest prefix whose blocks
// fit in budget tokens. It stops at the first block that would overflow;
// later blocks are never considered, even if they are smaller. Only block
// tokens count towards the budget, separators do not.
func (a *ContextAssembler) Assemble(ranked []domain.SearchResult, budget int) domain.AssembledContext {
	out := domain.AssembledContext{
		Sources:      []domain.Source{},
		BudgetTokens: budget,
	}

	blocks := make([]string, 0, len(ranked))
	for i, r := range ranked {
		block := SourceBlock(i+1, r)
		tokens := a.tokenizer.CountTokens(block)
		if out.TokensUsed+tokens > budget {
			logger.Debug("assemble: source %d needs %d tokens, %d of %d used, stopping",
				i+1, tokens, out.TokensUsed, budget)
			break
		}
		blocks = append(blocks, block)
		out.TokensUsed += tokens
		out.Sources = append(out.Sources, domain.Source{
			DocID:          r.DocID,
			RelevanceScore: r.Distance,
		})
	}

	out.Text = strings.Join(blocks, SourceSeparator)
	return out
}
