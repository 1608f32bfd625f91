package gen

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
)

var Module = fx.Module("gen", fx.Provide(NewNode))

func NewNode() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}
