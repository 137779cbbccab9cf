package state

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
)

var namePattern, _ = regexp.Compile("^[0-9a-z._-]+$")

func PathValidator(s string) error {
	_, err := os.Stat(path.Dir(s))
	if err != nil {
		return err
	}
	_, err = filepath.Abs(s)
	return err
}

func NameValidator(s string) error {
	if !namePattern.MatchString(s) {
		return fmt.Errorf("%s is not a valid name, must match pattern %s", s, namePattern.String())
	}
	if len(s) > 100 {
		return fmt.Errorf("len(\"%s\") = %d > 100 is too long", s, len(s))
	}
	return nil
}

func TopologyConfigValidator(cfg *TopologyCfg) error {
	if len(cfg.Routers) == 0 {
		return fmt.Errorf("%w: no routers defined", ErrInvalidTopology)
	}
	names := make(map[string]struct{})
	ids := make(map[NodeId]struct{})
	for _, r := range cfg.Routers {
		err := NameValidator(r.Name)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidTopology, err)
		}
		if _, ok := names[r.Name]; ok {
			return fmt.Errorf("%w: duplicate router name: %s", ErrInvalidTopology, r.Name)
		}
		if _, ok := ids[r.Id]; ok {
			return fmt.Errorf("%w: duplicate router id: %d", ErrInvalidTopology, r.Id)
		}
		names[r.Name] = struct{}{}
		ids[r.Id] = struct{}{}
	}
	for i := range cfg.Routers {
		if _, ok := ids[NodeId(i)]; !ok {
			return fmt.Errorf("%w: router ids must be 0..%d, missing %d", ErrInvalidTopology, len(cfg.Routers)-1, i)
		}
	}

	edges := make(map[Edge]struct{})
	for _, l := range cfg.Links {
		if _, ok := ids[l.A]; !ok {
			return fmt.Errorf("%w: router %d not defined", ErrInvalidTopology, l.A)
		}
		if _, ok := ids[l.B]; !ok {
			return fmt.Errorf("%w: router %d not defined", ErrInvalidTopology, l.B)
		}
		if l.A == l.B {
			return fmt.Errorf("%w: self link on router %d", ErrInvalidTopology, l.A)
		}
		if l.Cost >= INF {
			return fmt.Errorf("%w: link %d-%d cost %d must be below %d", ErrInvalidTopology, l.A, l.B, l.Cost, INF)
		}
		if _, ok := edges[MakeEdge(l.A, l.B)]; ok {
			return fmt.Errorf("%w: duplicate link found: %d, %d", ErrInvalidTopology, l.A, l.B)
		}
		edges[MakeEdge(l.A, l.B)] = struct{}{}
	}

	for _, e := range cfg.Events {
		if _, ok := edges[MakeEdge(e.A, e.B)]; !ok {
			return fmt.Errorf("%w: event at %v references unknown link %d-%d", ErrInvalidTopology, e.At, e.A, e.B)
		}
		if e.Cost >= INF {
			return fmt.Errorf("%w: event at %v cost %d must be below %d", ErrInvalidTopology, e.At, e.Cost, INF)
		}
		if e.At < 0 {
			return fmt.Errorf("%w: event time %v is negative", ErrInvalidTopology, e.At)
		}
	}

	if cfg.Sim.MinDelay < 0 || cfg.Sim.MaxDelay < cfg.Sim.MinDelay {
		return fmt.Errorf("%w: sim delay range [%v, %v] is invalid", ErrInvalidTopology, cfg.Sim.MinDelay, cfg.Sim.MaxDelay)
	}
	for _, p := range []float64{cfg.Sim.Loss, cfg.Sim.Corrupt, cfg.Live.Loss, cfg.Live.Corrupt} {
		if p < 0 || p > 1 {
			return fmt.Errorf("%w: probability %v outside [0, 1]", ErrInvalidTopology, p)
		}
	}
	return nil
}
