package telemetry

import (
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/gorm"
)

// InstrumentGorm registers the otelgorm plugin so every ledger query carries a span.
// Query variables stay out of spans; they hold prices and quantities.
func (p *Provider) InstrumentGorm(db *gorm.DB, dbSystem string) error {
	if !p.Enabled() {
		return nil
	}
	return db.Use(otelgorm.NewPlugin(
		otelgorm.WithDBName(dbSystem),
		otelgorm.WithoutQueryVariables(),
	))
}
