package derived

import (
	"context"
	"fmt"
)

// Dataset names resolvable by consumers
const (
	DatasetHarmonizedOrders  = "harmonized_orders"
	DatasetHarmonizedWeather = "harmonized_weather"
	DatasetCorrelation       = "sales_weather_correlation"
	DatasetDailyCityMetrics  = "daily_city_metrics"
	DatasetCustomers         = "customers"
)

// Dataset is one named derived dataset: a recomputed-on-read transform with
// declared dependencies, no independently persisted rows.
type Dataset struct {
	Name        string
	Description string
	DependsOn   []string
	Compute     func(ctx context.Context) (interface{}, error)
}

// Registry resolves derived datasets by name
type Registry struct {
	datasets map[string]Dataset
	order    []string
}

// DefinitionStore durably records dataset definitions (not rows) so later
// callers can resolve the names
type DefinitionStore interface {
	SaveDatasetDefinition(name, description string, dependsOn []string) error
}

// NewRegistry builds the dataset registry over a pipeline
func NewRegistry(p *Pipeline) *Registry {
	r := &Registry{datasets: make(map[string]Dataset)}

	r.register(Dataset{
		Name:        DatasetCustomers,
		Description: "Loyalty customers deduplicated on full-row identity",
		DependsOn:   []string{"customers_raw"},
		Compute: func(ctx context.Context) (interface{}, error) {
			return p.Customers(ctx)
		},
	})
	r.register(Dataset{
		Name:        DatasetHarmonizedOrders,
		Description: "Valid orders joined to customers, geo references and line items",
		DependsOn:   []string{"orders_raw", DatasetCustomers, "geo_references", "order_line_items"},
		Compute: func(ctx context.Context) (interface{}, error) {
			return p.HarmonizedOrders(ctx)
		},
	})
	r.register(Dataset{
		Name:        DatasetHarmonizedWeather,
		Description: "Weather observations resolved to canonical city and country names",
		DependsOn:   []string{"weather_observations", "geo_references", "country_references"},
		Compute: func(ctx context.Context) (interface{}, error) {
			return p.HarmonizedWeather(ctx)
		},
	})
	r.register(Dataset{
		Name:        DatasetCorrelation,
		Description: "Weather-day driven left join of harmonized weather to harmonized orders",
		DependsOn:   []string{DatasetHarmonizedWeather, DatasetHarmonizedOrders},
		Compute: func(ctx context.Context) (interface{}, error) {
			return p.SalesWeatherCorrelation(ctx)
		},
	})
	r.register(Dataset{
		Name:        DatasetDailyCityMetrics,
		Description: "Per (date, city, country) sales and unit-converted weather metrics",
		DependsOn:   []string{DatasetCorrelation},
		Compute: func(ctx context.Context) (interface{}, error) {
			return p.DailyCityMetrics(ctx)
		},
	})

	return r
}

func (r *Registry) register(d Dataset) {
	r.datasets[d.Name] = d
	r.order = append(r.order, d.Name)
}

// Resolve returns the named dataset
func (r *Registry) Resolve(name string) (Dataset, error) {
	d, ok := r.datasets[name]
	if !ok {
		return Dataset{}, fmt.Errorf("unknown derived dataset: %s", name)
	}
	return d, nil
}

// Names returns the registered dataset names in registration order
func (r *Registry) Names() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// SaveDefinitions persists every dataset definition to the store
func (r *Registry) SaveDefinitions(store DefinitionStore) error {
	for _, name := range r.order {
		d := r.datasets[name]
		if err := store.SaveDatasetDefinition(d.Name, d.Description, d.DependsOn); err != nil {
			return fmt.Errorf("failed to save definition for %s: %w", d.Name, err)
		}
	}
	return nil
}
