package bootstrap

import (
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/narratize/audiobook-engine/internal/job"
)

func ProvideJobStore(db *gorm.DB) *job.Store {
	return job.NewStore(db)
}

func RunMigrations(jobStore *job.Store) error {
	return jobStore.Migrate()
}

var StoresModule = fx.Options(
	fx.Provide(ProvideJobStore),
	fx.Invoke(RunMigrations),
)
