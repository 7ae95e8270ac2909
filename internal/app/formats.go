package app

import (
	"github.com/vk/datashelf/formats/jsonfmt"
	"github.com/vk/datashelf/formats/msgpackfmt"
	"github.com/vk/datashelf/formats/rawfmt"
	"github.com/vk/datashelf/formats/yamlfmt"
	"github.com/vk/datashelf/internal/formatter"
)

// coreFormats is the definitive list of all formatters that are compiled
// into the datashelf binary.
var coreFormats = []formatter.Module{
	&rawfmt.Module{},
	&jsonfmt.Module{},
	&yamlfmt.Module{},
	&msgpackfmt.Module{},
}
