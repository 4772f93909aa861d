// Package credentials holder tokens som roteres mellom forespørsler for å spre kvotebruken.
package credentials

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/oauth2"

	"github.com/jonmartinstorm/commitsnusern/internal/config"
)

// TokenType gir headeren "Authorization: token <secret>".
const TokenType = "token"

// Pool deler ut tokens i fast rundgang. Den eies av én goroutine og er ikke trådsikker.
type Pool struct {
	tokens []string
	cursor int
	last   int
}

var _ oauth2.TokenSource = (*Pool)(nil)

func NewPool(tokens []string) (*Pool, error) {
	if len(tokens) == 0 {
		return nil, &config.ConfigurationError{Field: config.KeyTokens, Msg: "ingen tokens å rotere mellom"}
	}
	cp := make([]string, len(tokens))
	copy(cp, tokens)
	return &Pool{tokens: cp}, nil
}

// LoadFile leser ett token per linje. Tomme linjer ignoreres.
func LoadFile(path string) (*Pool, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &config.ConfigurationError{
				Field: config.KeyTokens,
				Msg:   fmt.Sprintf("fant ikke %s – lag den med ett token per linje", path),
				Err:   err,
			}
		}
		return nil, &config.ConfigurationError{Field: config.KeyTokens, Msg: "kunne ikke åpne tokenfil", Err: err}
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			slog.Warn("Klarte ikke å lukke tokenfil", "error", cerr)
		}
	}()

	var tokens []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			tokens = append(tokens, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, &config.ConfigurationError{Field: config.KeyTokens, Msg: "kunne ikke lese tokenfil", Err: err}
	}
	if len(tokens) == 0 {
		return nil, &config.ConfigurationError{Field: config.KeyTokens, Msg: fmt.Sprintf("%s er tom", path)}
	}

	slog.Info("Tokens lastet", "antall", len(tokens))
	return NewPool(tokens)
}

// Next returnerer neste token og hvilken plass (1-basert) det kom fra.
func (p *Pool) Next() (int, string) {
	slot := p.cursor
	p.cursor = (p.cursor + 1) % len(p.tokens)
	p.last = slot + 1
	slog.Debug("Token-rotasjon", "slot", slot+1, "av", len(p.tokens))
	return slot + 1, p.tokens[slot]
}

// LastSlot er plassen (1-basert) til sist utdelte token, eller 0 før første kall.
func (p *Pool) LastSlot() int {
	return p.last
}

func (p *Pool) Size() int {
	return len(p.tokens)
}

// Token lar oauth2.Transport hente et nytt token for hver forespørsel.
func (p *Pool) Token() (*oauth2.Token, error) {
	_, tok := p.Next()
	return &oauth2.Token{AccessToken: tok, TokenType: TokenType}, nil
}
