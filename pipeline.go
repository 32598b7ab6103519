package familysearch

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
)

// Handler performs one exchange and returns its response.
type Handler func(ctx context.Context, req *Request) (*Response, error)

// Stage wraps a Handler. Stages run in list order on the way out and in
// reverse order on the way back.
type Stage func(next Handler) Handler

// DefaultStages returns the stage list every client uses unless
// WithStages replaces it: bearer injection, then status classification,
// then body decoding.
func DefaultStages(c *Client) []Stage {
	return []Stage{
		AuthStage(c.TokenSource()),
		ClassifyStage(c.Classifier()),
		DecodeStage(c.Classifier()),
	}
}

// chainStages wraps terminal so that stages[0] is outermost.
func chainStages(stages []Stage, terminal Handler) Handler {
	current := terminal
	for i := len(stages) - 1; i >= 0; i-- {
		if stages[i] == nil {
			continue
		}
		current = stages[i](current)
	}
	return current
}

// AuthStage sets the Authorization header from src when the request does
// not already carry one and src yields a valid token.
func AuthStage(src oauth2.TokenSource) Stage {
	return func(next Handler) Handler {
		return func(ctx context.Context, req *Request) (*Response, error) {
			if src != nil && req.Header.Get("Authorization") == "" {
				tok, err := src.Token()
				if err != nil {
					return nil, fmt.Errorf("familysearch: token source: %w", err)
				}
				if tok.Valid() {
					req.Header.Set("Authorization", tok.Type()+" "+tok.AccessToken)
				}
			}
			return next(ctx, req)
		}
	}
}

// DecodeStage replaces the raw body of the response with the value decoded
// by c.
func DecodeStage(c *Classifier) Stage {
	return func(next Handler) Handler {
		return func(ctx context.Context, req *Request) (*Response, error) {
			resp, err := next(ctx, req)
			if err != nil || resp == nil {
				return resp, err
			}
			return c.Decode(resp.StatusCode, resp.Header, resp.Raw), nil
		}
	}
}

// ClassifyStage turns 4xx and 5xx responses into *ResponseError. It sits
// outside DecodeStage so the error carries the decoded body.
func ClassifyStage(c *Classifier) Stage {
	return func(next Handler) Handler {
		return func(ctx context.Context, req *Request) (*Response, error) {
			resp, err := next(ctx, req)
			if err != nil || resp == nil {
				return resp, err
			}
			if err := c.Check(resp); err != nil {
				if respErr, ok := err.(*ResponseError); ok {
					respErr.Method = req.Method
					respErr.URL = req.URL
				}
				return nil, err
			}
			return resp, nil
		}
	}
}

// clientTokenSource serves the client's stored token, falling back to a
// configured oauth2.TokenSource.
type clientTokenSource struct {
	c *Client
}

func (s clientTokenSource) Token() (*oauth2.Token, error) {
	if tok := s.c.storedToken(); tok != "" {
		return &oauth2.Token{AccessToken: tok, TokenType: "Bearer"}, nil
	}
	if s.c.tokenSource != nil {
		return s.c.tokenSource.Token()
	}
	return &oauth2.Token{}, nil
}
