// Package campaign loads cherry-pick campaign definition files. A campaign
// file pins down one range pick (repo, endpoints, ledger) so it can be rerun
// or scheduled without retyping flags.
package campaign

import (
	"fmt"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Campaign is one cherry-pick campaign definition
type Campaign struct {
	Name       string        `yaml:"name"`
	Repo       string        `yaml:"repo"`
	Start      string        `yaml:"start"`
	End        string        `yaml:"end"`
	Ledger     string        `yaml:"ledger"`
	Format     string        `yaml:"format"`
	Unattended bool          `yaml:"unattended"`
	Cron       string        `yaml:"cron"`
	PollEvery  time.Duration `yaml:"poll_every"`
	Timeout    time.Duration `yaml:"timeout"`
}

// File holds every campaign in a definition file
type File struct {
	Campaigns []Campaign `yaml:"campaigns"`
}

// cronParser matches the standard five-field crontab format
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ParseCron parses a five-field cron expression
func ParseCron(expr string) (cron.Schedule, error) {
	return cronParser.Parse(expr)
}

// Validate checks one campaign definition
func (c *Campaign) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("campaign name is required")
	}
	if c.Start == "" || c.End == "" {
		return fmt.Errorf("campaign %q: start and end refs are required", c.Name)
	}
	if c.Ledger == "" {
		return fmt.Errorf("campaign %q: ledger path is required", c.Name)
	}
	if c.Cron != "" {
		if _, err := ParseCron(c.Cron); err != nil {
			return fmt.Errorf("campaign %q: invalid cron expression: %w", c.Name, err)
		}
		if !c.Unattended {
			return fmt.Errorf("campaign %q: scheduled campaigns must be unattended", c.Name)
		}
	}
	return nil
}

// Load reads and validates a campaign file
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing campaign file: %w", err)
	}
	if len(f.Campaigns) == 0 {
		return nil, fmt.Errorf("campaign file %s defines no campaigns", path)
	}
	for i := range f.Campaigns {
		if err := f.Campaigns[i].Validate(); err != nil {
			return nil, err
		}
	}
	return &f, nil
}

// Scheduled returns the campaigns carrying a cron expression
func (f *File) Scheduled() []Campaign {
	var out []Campaign
	for _, c := range f.Campaigns {
		if c.Cron != "" {
			out = append(out, c)
		}
	}
	return out
}

// NextRun returns the next firing time for a scheduled campaign
func (c *Campaign) NextRun(after time.Time) (time.Time, error) {
	sched, err := ParseCron(c.Cron)
	if err != nil {
		return time.Time{}, err
	}
	return sched.Next(after), nil
}
