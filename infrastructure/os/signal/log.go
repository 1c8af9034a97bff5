package signal

import (
	"github.com/cruxnet/cruxd/infrastructure/logger"
	"github.com/cruxnet/cruxd/util/panics"
)

var log = logger.RegisterSubSystem("CRXD")
var spawn = panics.GoroutineWrapperFunc(log)
