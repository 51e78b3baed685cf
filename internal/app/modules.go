package app

import (
	"github.com/vk/agentconfgen/internal/registry"
	"github.com/vk/agentconfgen/modules/airsidercx"
	"github.com/vk/agentconfgen/modules/driver"
	"github.com/vk/agentconfgen/modules/economizer"
	"github.com/vk/agentconfgen/modules/ilc"
)

// coreModules is the definitive list of all flavors that are compiled into
// the agentconfgen binary.
var coreModules = []registry.Module{
	&driver.Module{},
	&economizer.Module{},
	&ilc.Module{},
	&airsidercx.Module{},
}

// NewRegistry returns a registry populated with modules, or with the core
// modules when none are given.
func NewRegistry(modules ...registry.Module) *registry.Registry {
	reg := registry.New()
	if len(modules) == 0 {
		modules = coreModules
	}
	for _, mod := range modules {
		mod.Register(reg)
	}
	return reg
}

// Flavors lists the core flavors in name order.
func Flavors() []*registry.Flavor {
	return NewRegistry().Flavors()
}
