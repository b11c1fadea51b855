package models

// AllModels returns every GORM model for auto migration.
func AllModels() []any {
	return []any{
		&Experiment{},
		&RegisteredModel{},
	}
}
