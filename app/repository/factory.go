package repository

import (
	"sync"

	"gorm.io/gorm"
)

// Factory manages repository instances and ensures they are singletons
type Factory struct {
	db    *gorm.DB
	repos *Repositories
	once  sync.Once
}

// NewFactory creates a new repository factory
func NewFactory(db *gorm.DB) *Factory {
	return &Factory{
		db: db,
	}
}

// GetRepositories returns a singleton instance of all repositories
func (f *Factory) GetRepositories() *Repositories {
	f.once.Do(func() {
		f.repos = NewRepositories(f.db)
	})
	return f.repos
}

// GetEventRepository returns the inbound event repository instance
func (f *Factory) GetEventRepository() EventRepository {
	return f.GetRepositories().Event
}

// GetNonceRepository returns the nonce repository instance
func (f *Factory) GetNonceRepository() NonceRepository {
	return f.GetRepositories().Nonce
}

// GetContactRepository returns the contact repository instance
func (f *Factory) GetContactRepository() ContactRepository {
	return f.GetRepositories().Contact
}

// GetTransactionRepository returns the transaction repository instance
func (f *Factory) GetTransactionRepository() TransactionRepository {
	return f.GetRepositories().Transaction
}

// GetTagRepository returns the tag repository instance
func (f *Factory) GetTagRepository() TagRepository {
	return f.GetRepositories().Tag
}

// GetAlertRepository returns the security alert repository instance
func (f *Factory) GetAlertRepository() AlertRepository {
	return f.GetRepositories().Alert
}

// GetReconciliationRepository returns the reconciliation repository instance
func (f *Factory) GetReconciliationRepository() ReconciliationRepository {
	return f.GetRepositories().Reconciliation
}

// GetStatsRepository returns the ingest stats repository instance
func (f *Factory) GetStatsRepository() StatsRepository {
	return f.GetRepositories().Stats
}

// Global factory instance
var globalFactory *Factory
var factoryOnce sync.Once

// InitializeFactory initializes the global repository factory
func InitializeFactory(db *gorm.DB) {
	factoryOnce.Do(func() {
		globalFactory = NewFactory(db)
	})
}

// GetGlobalFactory returns the global repository factory instance
func GetGlobalFactory() *Factory {
	if globalFactory == nil {
		panic("Repository factory not initialized. Call InitializeFactory first.")
	}
	return globalFactory
}

// GetGlobalRepositories returns the global repositories instance
func GetGlobalRepositories() *Repositories {
	return GetGlobalFactory().GetRepositories()
}
