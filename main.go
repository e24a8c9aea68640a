package main

import (
	"github.com/yaroher/protoc-gen-go-plan/generator"
	"github.com/yaroher/protoc-gen-go-plan/logger"
	"go.uber.org/zap"
	"google.golang.org/protobuf/compiler/protogen"
	"google.golang.org/protobuf/types/pluginpb"
)

func Generate(p *protogen.Plugin) error {
	settings, err := generator.NewSettingsFromPlugin(p)
	if err != nil {
		return err
	}
	g, err := generator.NewGenerator(p, generator.WithSettings(settings))
	if err != nil {
		return err
	}
	return g.Generate()
}

func main() {
	defer func() { _ = logger.Logger.Sync() }()
	protogen.Options{}.Run(func(plugin *protogen.Plugin) error {
		plugin.SupportedFeatures = uint64(pluginpb.CodeGeneratorResponse_FEATURE_PROTO3_OPTIONAL)
		if err := Generate(plugin); err != nil {
			logger.Error("generation failed", zap.Error(err))
			return err
		}
		return nil
	})
}
