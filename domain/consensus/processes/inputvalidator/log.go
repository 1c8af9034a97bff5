package inputvalidator

import (
	"github.com/cruxnet/cruxd/infrastructure/logger"
	"github.com/cruxnet/cruxd/util/panics"
)

var log = logger.RegisterSubSystem("TXSV")
var spawn = panics.GoroutineWrapperFunc(log)
