// Package catalog holds the read-only plan table. It is parsed once and never
// mutated; every accessor hands out copies.
package catalog

import (
	_ "embed"
	"fmt"
	"io"
	"sync"

	"gopkg.in/yaml.v3"

	"checkout-backend/internal/domain"
)

//go:embed catalog.yaml
var embedded []byte

type planDef struct {
	Price    int64    `yaml:"price"`
	Label    string   `yaml:"label"`
	Features []string `yaml:"features"`
}

type serviceDef struct {
	ID          string                  `yaml:"id"`
	Title       string                  `yaml:"title"`
	ShortTitle  string                  `yaml:"shortTitle"`
	Description string                  `yaml:"description"`
	Pricing     map[domain.Tier]planDef `yaml:"pricing"`
}

type file struct {
	Services []serviceDef `yaml:"services"`
}

type Catalog struct {
	order    []string
	services map[string]domain.Service
	plans    map[key]domain.PlanOffering
}

type key struct {
	service string
	tier    domain.Tier
}

var (
	defaultOnce sync.Once
	defaultCat  *Catalog
	defaultErr  error
)

// Default returns the embedded catalog. It panics if the embedded file is
// malformed, which only a broken build can cause.
func Default() *Catalog {
	defaultOnce.Do(func() {
		defaultCat, defaultErr = parse(embedded)
	})
	if defaultErr != nil {
		panic(defaultErr)
	}
	return defaultCat
}

func Load(r io.Reader) (*Catalog, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return parse(raw)
}

func parse(raw []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	c := &Catalog{
		services: make(map[string]domain.Service, len(f.Services)),
		plans:    make(map[key]domain.PlanOffering),
	}
	for _, s := range f.Services {
		if s.ID == "" {
			return nil, fmt.Errorf("catalog: service without id")
		}
		if _, dup := c.services[s.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate service %q", s.ID)
		}
		svc := domain.Service{
			ID:          s.ID,
			Title:       s.Title,
			ShortTitle:  s.ShortTitle,
			Description: s.Description,
		}
		for _, tier := range domain.Tiers {
			p, ok := s.Pricing[tier]
			if !ok {
				continue
			}
			if p.Price <= 0 {
				return nil, fmt.Errorf("catalog: %s/%s has non-positive price", s.ID, tier)
			}
			offer := domain.PlanOffering{
				ServiceID:    s.ID,
				Tier:         tier,
				DisplayLabel: p.Label,
				Price:        p.Price,
				Features:     append([]string(nil), p.Features...),
			}
			c.plans[key{s.ID, tier}] = offer
			svc.Plans = append(svc.Plans, offer)
		}
		for tier := range s.Pricing {
			if !tier.Valid() {
				return nil, fmt.Errorf("catalog: %s has unknown tier %q", s.ID, tier)
			}
		}
		c.services[s.ID] = svc
		c.order = append(c.order, s.ID)
	}
	return c, nil
}

func (c *Catalog) Lookup(serviceID string, tier domain.Tier) (domain.PlanOffering, bool) {
	p, ok := c.plans[key{serviceID, tier}]
	if !ok {
		return domain.PlanOffering{}, false
	}
	p.Features = append([]string(nil), p.Features...)
	return p, true
}

func (c *Catalog) Service(id string) (domain.Service, bool) {
	s, ok := c.services[id]
	if !ok {
		return domain.Service{}, false
	}
	return copyService(s), true
}

// Services lists services in file order.
func (c *Catalog) Services() []domain.Service {
	out := make([]domain.Service, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, copyService(c.services[id]))
	}
	return out
}

func copyService(s domain.Service) domain.Service {
	plans := make([]domain.PlanOffering, len(s.Plans))
	for i, p := range s.Plans {
		p.Features = append([]string(nil), p.Features...)
		plans[i] = p
	}
	s.Plans = plans
	return s
}
