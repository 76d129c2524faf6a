package simidx

// Register the built-in backends with the factory and loader registries.
import (
	_ "github.com/simidx/simidx/backend/flat"
	_ "github.com/simidx/simidx/backend/ivf"
	_ "github.com/simidx/simidx/backend/lsh"
)
