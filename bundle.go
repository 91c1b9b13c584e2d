package miniracer

import (
	"fmt"
	"strings"

	esbuild "github.com/evanw/esbuild/pkg/api"
)

// TransformModule lowers ES-module source into a plain script the evaluator
// can run. Source without module syntax is returned as-is to avoid
// unnecessary processing.
func TransformModule(src string) (string, error) {
	if !needsBundling(src) {
		return src, nil
	}

	result := esbuild.Transform(src, esbuild.TransformOptions{
		Loader: esbuild.LoaderJS,
		Format: esbuild.FormatIIFE,
		Target: esbuild.ES2022,
	})
	if len(result.Errors) > 0 {
		return "", fmt.Errorf("transforming module: %s", joinMessages(result.Errors))
	}
	return string(result.Code), nil
}

// BundleModule bundles an on-disk entry point with all its imports into a
// single self-contained script.
func BundleModule(entryPoint string) (string, error) {
	result := esbuild.Build(esbuild.BuildOptions{
		EntryPoints: []string{entryPoint},
		Bundle:      true,
		Write:       false,
		Format:      esbuild.FormatIIFE,
		Platform:    esbuild.PlatformNeutral,
		Target:      esbuild.ES2022,
	})
	if len(result.Errors) > 0 {
		return "", fmt.Errorf("bundling %s: %s", entryPoint, joinMessages(result.Errors))
	}
	if len(result.OutputFiles) == 0 {
		return "", fmt.Errorf("bundling %s produced no output", entryPoint)
	}
	return string(result.OutputFiles[0].Contents), nil
}

// needsBundling checks for module syntax that requires lowering. Plain
// scripts skip the transform entirely.
func needsBundling(source string) bool {
	return strings.Contains(source, "import ") ||
		strings.Contains(source, "import{") ||
		strings.Contains(source, "import(") ||
		strings.Contains(source, "export ") ||
		strings.Contains(source, "export{")
}

func joinMessages(msgs []esbuild.Message) string {
	var texts []string
	for _, m := range msgs {
		texts = append(texts, m.Text)
	}
	return strings.Join(texts, "; ")
}
