// Package config handles algopt.toml search configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/BurntSushi/toml"
	log "github.com/sirupsen/logrus"

	"github.com/oisee/algopt/pkg/cpu"
	"github.com/oisee/algopt/pkg/demo"
	"github.com/oisee/algopt/pkg/inst"
	"github.com/oisee/algopt/pkg/search"
)

// Config describes one search. Zero Set and Layout are taken from the
// reference demo.
type Config struct {
	Reference string      `toml:"reference"`
	Set       string      `toml:"set"`
	Layout    inst.Layout `toml:"layout"`
	MaxLength int         `toml:"max-length"`

	Workers   int    `toml:"workers"`
	StepLimit uint64 `toml:"step-limit"`
	BatchSize int    `toml:"batch-size"`

	ProgressEvery   uint64 `toml:"progress-every"`
	Checkpoint      string `toml:"checkpoint"`
	CheckpointEvery uint64 `toml:"checkpoint-every"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Reference:       "loop-sum",
		MaxLength:       1,
		StepLimit:       cpu.DefaultStepLimit,
		BatchSize:       256,
		ProgressEvery:   100,
		CheckpointEvery: 10000,
	}
}

// Load reads a TOML file over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	c := Default()
	md, err := toml.Decode(string(data), c)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%s: unknown key %q", path, undecoded[0].String())
	}
	return c, nil
}

// Validate checks the values that do not depend on the reference.
func (c *Config) Validate() error {
	if c.Reference == "" {
		return errors.New("no reference program")
	}
	if c.MaxLength < 1 {
		return fmt.Errorf("max-length %d must be positive", c.MaxLength)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers %d must not be negative", c.Workers)
	}
	if c.BatchSize < 0 {
		return fmt.Errorf("batch-size %d must not be negative", c.BatchSize)
	}
	if c.Set != "" {
		if _, err := inst.LookupSet(c.Set); err != nil {
			return err
		}
	}
	if c.Layout != (inst.Layout{}) {
		if err := c.Layout.Validate(); err != nil {
			return fmt.Errorf("layout: %w", err)
		}
	}
	return nil
}

// Search resolves the reference and returns the search parameters.
func (c *Config) Search() (search.Config, inst.Program, error) {
	if err := c.Validate(); err != nil {
		return search.Config{}, nil, err
	}
	d, err := demo.Lookup(c.Reference)
	if err != nil {
		return search.Config{}, nil, err
	}
	set := d.Set
	if c.Set != "" {
		set, _ = inst.LookupSet(c.Set)
	}
	layout := d.Layout
	if c.Layout != (inst.Layout{}) {
		layout = c.Layout
	}
	if !d.Program.Valid(layout) {
		return search.Config{}, nil, fmt.Errorf("reference %s does not fit layout %s", d.Name, layout)
	}
	if missing := foreignOps(set, d.Program); len(missing) > 0 {
		log.Warnf("Set %s lacks %v used by reference %s; it will not be among the candidates", set.Name, missing, d.Name)
	}
	return search.Config{
		Set:             set,
		Layout:          layout,
		MaxLen:          c.MaxLength,
		NumWorkers:      c.Workers,
		StepLimit:       c.StepLimit,
		BatchSize:       c.BatchSize,
		ProgressEvery:   c.ProgressEvery,
		Checkpoint:      c.Checkpoint,
		CheckpointEvery: c.CheckpointEvery,
	}, d.Program, nil
}

// foreignOps lists, once each, the kinds of p that set does not contain.
func foreignOps(set *inst.InstructionSet, p inst.Program) []inst.OpCode {
	var missing []inst.OpCode
	for _, in := range p {
		if !set.Contains(in.Op) && !slices.Contains(missing, in.Op) {
			missing = append(missing, in.Op)
		}
	}
	return missing
}

// Write encodes c as TOML to path.
func (c *Config) Write(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := toml.NewEncoder(f).Encode(c); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
