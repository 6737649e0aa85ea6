package handlers

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/dgallion1/docmacro/internal/macro"
)

// HideVerbatim encodes the payload so neither stage-1 commands nor landmark
// extraction see it. RevealVerbatim restores it in stage 2.
func HideVerbatim(_ context.Context, _ *macro.Run, inv macro.Invocation) (string, error) {
	return "{{" + inv.Name + ":" + base64.StdEncoding.EncodeToString([]byte(inv.Argument)) + "}}", nil
}

func RevealVerbatim(_ context.Context, _ *macro.Run, inv macro.Invocation) (string, error) {
	data, err := base64.StdEncoding.DecodeString(inv.Argument)
	if err != nil {
		return "", fmt.Errorf("decode verbatim payload: %w", err)
	}
	return string(data), nil
}
