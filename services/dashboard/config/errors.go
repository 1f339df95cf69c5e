package config

import "errors"

var errMissingValue = errors.New("missing config value")
var errUnknownInventorySource = errors.New("unknown inventory source")
