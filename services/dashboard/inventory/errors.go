package inventory

import "errors"

var (
	errNilSource          = errors.New("nil inventory source")
	errNilKubeClient      = errors.New("nil kubernetes client")
	errInvalidInterval    = errors.New("invalid inventory refresh interval")
	errNilSubscriber      = errors.New("nil subscriber")
	errInvalidStaticEntry = errors.New("invalid static target")
)
