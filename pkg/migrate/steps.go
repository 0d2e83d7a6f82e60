package migrate

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/seedslabs/gratibot-backend/pkg/db/models"
)

// ErrAlreadyApplied reports an operation whose effect is already present in
// the schema. It counts as a failure in the step outcome (the change was not
// performed now) while signalling that no alerting is warranted.
var ErrAlreadyApplied = errors.New("already applied")

// Steps returns the ordered directory migration steps. Ordinals are 1-based
// slice positions; never reorder or remove entries, only append.
func Steps() []Step {
	return []Step{
		{
			Name: "identity-rework",
			Ops: []Operation{
				dropIndex("drop-display-name-unique-index", "idx_user_name"),
				alterColumn("relax-display-name-column", "DisplayName"),
				addColumn("add-chat-identity-column", "ChatIdentity"),
				addColumn("add-surrogate-key-column", "PkID"),
				alterColumn("promote-surrogate-key", "PkID"),
			},
		},
		{
			Name: "locale-preference",
			Ops: []Operation{
				addColumn("add-locale-column", "Locale"),
			},
		},
	}
}

func addColumn(name, field string) Operation {
	return Operation{
		Name: name,
		Run: func(ctx context.Context, conn *gorm.DB) error {
			m := conn.WithContext(ctx).Migrator()
			if m.HasColumn(&models.User{}, field) {
				return fmt.Errorf("column for %s: %w", field, ErrAlreadyApplied)
			}
			return m.AddColumn(&models.User{}, field)
		},
	}
}

func alterColumn(name, field string) Operation {
	return Operation{
		Name: name,
		Run: func(ctx context.Context, conn *gorm.DB) error {
			return conn.WithContext(ctx).Migrator().AlterColumn(&models.User{}, field)
		},
	}
}

func dropIndex(name, index string) Operation {
	return Operation{
		Name: name,
		Run: func(ctx context.Context, conn *gorm.DB) error {
			m := conn.WithContext(ctx).Migrator()
			if !m.HasIndex(&models.User{}, index) {
				return fmt.Errorf("index %s: %w", index, ErrAlreadyApplied)
			}
			return m.DropIndex(&models.User{}, index)
		},
	}
}
