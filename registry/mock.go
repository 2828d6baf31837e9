package registry

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/namespace-registry/interfaces"
	"github.com/stretchr/testify/mock"
)

// MockRegistry mocks the NamespaceRegistry interface. Calls without a
// matching expectation panic.
type MockRegistry struct {
	mock.Mock
}

var _ interfaces.NamespaceRegistry = (*MockRegistry)(nil)

// Owner mocks the Owner method
func (m *MockRegistry) Owner(node common.Hash) common.Address {
	args := m.Called(node)
	return args.Get(0).(common.Address)
}

// Resolver mocks the Resolver method
func (m *MockRegistry) Resolver(node common.Hash) common.Address {
	args := m.Called(node)
	return args.Get(0).(common.Address)
}

// TTL mocks the TTL method
func (m *MockRegistry) TTL(node common.Hash) uint64 {
	args := m.Called(node)
	return args.Get(0).(uint64)
}

// RecordExists mocks the RecordExists method
func (m *MockRegistry) RecordExists(node common.Hash) bool {
	args := m.Called(node)
	return args.Bool(0)
}

// SetOwner mocks the SetOwner method
func (m *MockRegistry) SetOwner(caller common.Address, node common.Hash, owner common.Address) error {
	args := m.Called(caller, node, owner)
	return args.Error(0)
}

// SetSubnodeOwner mocks the SetSubnodeOwner method
func (m *MockRegistry) SetSubnodeOwner(caller common.Address, parent, label common.Hash, owner common.Address) (common.Hash, error) {
	args := m.Called(caller, parent, label, owner)
	return args.Get(0).(common.Hash), args.Error(1)
}

// SetSubnodeRecord mocks the SetSubnodeRecord method
func (m *MockRegistry) SetSubnodeRecord(caller common.Address, parent, label common.Hash, owner, resolver common.Address, ttl uint64) (common.Hash, error) {
	args := m.Called(caller, parent, label, owner, resolver, ttl)
	return args.Get(0).(common.Hash), args.Error(1)
}

// SetRecord mocks the SetRecord method
func (m *MockRegistry) SetRecord(caller common.Address, node common.Hash, owner, resolver common.Address, ttl uint64) error {
	args := m.Called(caller, node, owner, resolver, ttl)
	return args.Error(0)
}

// SetResolver mocks the SetResolver method
func (m *MockRegistry) SetResolver(caller common.Address, node common.Hash, resolver common.Address) error {
	args := m.Called(caller, node, resolver)
	return args.Error(0)
}

// SetTTL mocks the SetTTL method
func (m *MockRegistry) SetTTL(caller common.Address, node common.Hash, ttl uint64) error {
	args := m.Called(caller, node, ttl)
	return args.Error(0)
}
