package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"go-cafe-web/internal/model"
)

var stdout io.Writer = os.Stdout

// printJSON writes v as indented JSON.
func printJSON(v any) error {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// RegisterCmd creates an account.
type RegisterCmd struct {
	Email    string `kong:"required,help='Account email.'"`
	Name     string `kong:"required,help='Display name.'"`
	Password string `kong:"required,env='CAFE_PASSWORD',help='Account password.'"`
}

func (c *RegisterCmd) Run(ctx context.Context, g *Globals) error {
	tok, err := g.client().Register(ctx, model.RegisterRequest{
		Email:    c.Email,
		Name:     c.Name,
		Password: c.Password,
	})
	if err != nil {
		return err
	}
	return printJSON(tok)
}

// LoginCmd exchanges credentials for a token.
type LoginCmd struct {
	Email    string `kong:"required,help='Account email.'"`
	Password string `kong:"required,env='CAFE_PASSWORD',help='Account password.'"`
}

func (c *LoginCmd) Run(ctx context.Context, g *Globals) error {
	tok, err := g.client().Login(ctx, model.LoginRequest{Email: c.Email, Password: c.Password})
	if err != nil {
		return err
	}
	return printJSON(tok)
}

// WhoamiCmd decodes the session token locally. The signature is not
// checked; only the server can do that.
type WhoamiCmd struct{}

// tokenInfo is the readable form of a session token's claims.
type tokenInfo struct {
	UserID    string     `json:"user_id"`
	IssuedAt  *time.Time `json:"issued_at,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Expired   bool       `json:"expired"`
}

func (c *WhoamiCmd) Run(g *Globals) error {
	if err := g.requireToken(); err != nil {
		return err
	}
	info, err := inspectToken(g.Token, time.Now())
	if err != nil {
		return err
	}
	return printJSON(info)
}

func inspectToken(raw string, now time.Time) (*tokenInfo, error) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	info := &tokenInfo{UserID: claims.Subject}
	if claims.IssuedAt != nil {
		t := claims.IssuedAt.Time
		info.IssuedAt = &t
	}
	if claims.ExpiresAt != nil {
		t := claims.ExpiresAt.Time
		info.ExpiresAt = &t
		info.Expired = !now.Before(t)
	}
	return info, nil
}

// CafesCmd groups cafe listing commands.
type CafesCmd struct {
	List   CafesListCmd   `kong:"cmd,help='List your cafes.'"`
	Create CafesCreateCmd `kong:"cmd,help='Add a cafe to your list.'"`
	Get    CafesGetCmd    `kong:"cmd,help='Show one cafe.'"`
	Update CafesUpdateCmd `kong:"cmd,help='Update a cafe.'"`
	Delete CafesDeleteCmd `kong:"cmd,help='Delete a cafe.'"`
}

type CafesListCmd struct {
	Status string `kong:"help='Filter by visit status (to_visit|visited).'"`
	Sort   string `kong:"help='Sort order passed to the server (e.g. rating).'"`
}

func (c *CafesListCmd) Validate() error {
	return validateVisitStatus(c.Status)
}

func (c *CafesListCmd) Run(ctx context.Context, g *Globals) error {
	if err := g.requireToken(); err != nil {
		return err
	}
	cafes, err := g.client().ListMyCafes(ctx, model.ListCafesQuery{Status: c.Status, Sort: c.Sort})
	if err != nil {
		return err
	}
	return printJSON(cafes)
}

// CafeFields are the editable fields of a cafe listing.
type CafeFields struct {
	Name        string `kong:"required,help='Cafe name.'"`
	Address     string `kong:"help='Street address.'"`
	Description string `kong:"help='Free-form notes.'"`
	Status      string `kong:"help='Visit status (to_visit|visited).'"`
}

func (f CafeFields) Validate() error {
	return validateVisitStatus(f.Status)
}

func validateVisitStatus(s string) error {
	switch s {
	case "", model.VisitStatusToVisit, model.VisitStatusVisited:
		return nil
	}
	return fmt.Errorf("--status must be %s or %s; got %q", model.VisitStatusToVisit, model.VisitStatusVisited, s)
}

func (f CafeFields) input() model.CafeInput {
	return model.CafeInput{
		Name:        f.Name,
		Address:     f.Address,
		Description: f.Description,
		VisitStatus: f.Status,
	}
}

type CafesCreateCmd struct {
	CafeFields `kong:"embed"`
}

func (c *CafesCreateCmd) Run(ctx context.Context, g *Globals) error {
	if err := g.requireToken(); err != nil {
		return err
	}
	cafe, err := g.client().CreateMyCafe(ctx, c.input())
	if err != nil {
		return err
	}
	return printJSON(cafe)
}

type CafesGetCmd struct {
	ID uint `kong:"arg,help='Cafe ID.'"`
}

func (c *CafesGetCmd) Run(ctx context.Context, g *Globals) error {
	cafe, err := g.client().GetCafe(ctx, c.ID)
	if err != nil {
		return err
	}
	return printJSON(cafe)
}

type CafesUpdateCmd struct {
	ID         uint `kong:"arg,help='Cafe ID.'"`
	CafeFields `kong:"embed"`
}

func (c *CafesUpdateCmd) Run(ctx context.Context, g *Globals) error {
	if err := g.requireToken(); err != nil {
		return err
	}
	cafe, err := g.client().UpdateCafe(ctx, c.ID, c.input())
	if err != nil {
		return err
	}
	return printJSON(cafe)
}

type CafesDeleteCmd struct {
	ID uint `kong:"arg,help='Cafe ID.'"`
}

func (c *CafesDeleteCmd) Run(ctx context.Context, g *Globals) error {
	if err := g.requireToken(); err != nil {
		return err
	}
	if err := g.client().DeleteCafe(ctx, c.ID); err != nil {
		return err
	}
	_, err := fmt.Fprintf(stdout, "deleted cafe %d\n", c.ID)
	return err
}

// RatingsCmd groups rating commands.
type RatingsCmd struct {
	List   RatingsListCmd   `kong:"cmd,help='List the ratings of a cafe.'"`
	Mine   RatingsMineCmd   `kong:"cmd,help='List your ratings.'"`
	Create RatingsCreateCmd `kong:"cmd,help='Rate a cafe.'"`
	Update RatingsUpdateCmd `kong:"cmd,help='Update a rating.'"`
	Delete RatingsDeleteCmd `kong:"cmd,help='Delete a rating.'"`
}

type RatingsListCmd struct {
	CafeID uint `kong:"arg,help='Cafe ID.'"`
}

func (c *RatingsListCmd) Run(ctx context.Context, g *Globals) error {
	ratings, err := g.client().ListCafeRatings(ctx, c.CafeID)
	if err != nil {
		return err
	}
	return printJSON(ratings)
}

type RatingsMineCmd struct{}

func (c *RatingsMineCmd) Run(ctx context.Context, g *Globals) error {
	if err := g.requireToken(); err != nil {
		return err
	}
	ratings, err := g.client().ListMyRatings(ctx)
	if err != nil {
		return err
	}
	return printJSON(ratings)
}

// RatingFields are the editable fields of a rating.
type RatingFields struct {
	Score     int    `kong:"name='rating',required,help='Score from 1 to 5.'"`
	Review    string `kong:"help='Review text.'"`
	VisitedAt string `kong:"name='visited-at',help='Visit date (YYYY-MM-DD or RFC 3339).'"`
}

func (f RatingFields) input() (model.RatingInput, error) {
	if f.Score < 1 || f.Score > 5 {
		return model.RatingInput{}, fmt.Errorf("--rating must be between 1 and 5; got %d", f.Score)
	}
	in := model.RatingInput{Rating: f.Score, Review: f.Review}
	if f.VisitedAt != "" {
		t, err := parseVisitDate(f.VisitedAt)
		if err != nil {
			return model.RatingInput{}, err
		}
		in.VisitedAt = &t
	}
	return in, nil
}

func parseVisitDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("--visited-at: want YYYY-MM-DD or RFC 3339; got %q", s)
	}
	return t, nil
}

type RatingsCreateCmd struct {
	CafeID       uint `kong:"arg,help='Cafe ID.'"`
	RatingFields `kong:"embed"`
}

func (c *RatingsCreateCmd) Run(ctx context.Context, g *Globals) error {
	if err := g.requireToken(); err != nil {
		return err
	}
	in, err := c.input()
	if err != nil {
		return err
	}
	rating, err := g.client().CreateCafeRating(ctx, c.CafeID, in)
	if err != nil {
		return err
	}
	return printJSON(rating)
}

type RatingsUpdateCmd struct {
	ID           uint `kong:"arg,help='Rating ID.'"`
	RatingFields `kong:"embed"`
}

func (c *RatingsUpdateCmd) Run(ctx context.Context, g *Globals) error {
	if err := g.requireToken(); err != nil {
		return err
	}
	in, err := c.input()
	if err != nil {
		return err
	}
	rating, err := g.client().UpdateRating(ctx, c.ID, in)
	if err != nil {
		return err
	}
	return printJSON(rating)
}

type RatingsDeleteCmd struct {
	ID uint `kong:"arg,help='Rating ID.'"`
}

func (c *RatingsDeleteCmd) Run(ctx context.Context, g *Globals) error {
	if err := g.requireToken(); err != nil {
		return err
	}
	if err := g.client().DeleteRating(ctx, c.ID); err != nil {
		return err
	}
	_, err := fmt.Fprintf(stdout, "deleted rating %d\n", c.ID)
	return err
}
