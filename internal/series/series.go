package series

import (
	"fmt"
	"os"

	"tsfeed/internal/interval"
	"tsfeed/internal/store"

	"gopkg.in/yaml.v3"
)

// Definition describes one tracked series
type Definition struct {
	Name       string `yaml:"name"`
	Index      string `yaml:"index"`
	TSField    string `yaml:"ts_field"`
	ValueField string `yaml:"value_field"`

	// Interval and Method configure resampling; Raw switches the series to
	// unaggregated paged reads instead
	Interval string `yaml:"interval"`
	Method   string `yaml:"method"`
	Raw      bool   `yaml:"raw"`
}

// Config is the YAML file structure
type Config struct {
	Series []Definition `yaml:"series"`
}

// Validate checks a definition is complete and well-formed
func (d *Definition) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("series name is required")
	}
	if d.Index == "" {
		return fmt.Errorf("series %s: index is required", d.Name)
	}
	if d.TSField == "" || d.ValueField == "" {
		return fmt.Errorf("series %s: ts_field and value_field are required", d.Name)
	}

	if d.Raw {
		return nil
	}

	if _, err := interval.Parse(d.Interval); err != nil {
		return fmt.Errorf("series %s: %w", d.Name, err)
	}

	method := d.AggMethod()
	for _, m := range store.ValidAggMethods() {
		if method == m {
			return nil
		}
	}
	return fmt.Errorf("series %s: unknown aggregation method %q", d.Name, d.Method)
}

// AggMethod returns the configured aggregation method, defaulting to avg
func (d *Definition) AggMethod() store.AggMethod {
	if d.Method == "" {
		return store.AggAvg
	}
	return store.AggMethod(d.Method)
}

// LoadFromYAML loads series definitions from a YAML file
func LoadFromYAML(filePath string) ([]Definition, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read series file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse series YAML: %w", err)
	}

	if len(config.Series) == 0 {
		return nil, fmt.Errorf("no series found in config file")
	}

	for i := range config.Series {
		if config.Series[i].Method == "" {
			config.Series[i].Method = string(store.AggAvg)
		}
		if err := config.Series[i].Validate(); err != nil {
			return nil, err
		}
	}

	return config.Series, nil
}
