package conversation

import (
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

const scopeName = "github.com/koscakluka/ema-quiz/core/conversation"

var logger = otelslog.NewLogger(scopeName)
