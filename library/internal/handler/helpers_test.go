package handler_test

import (
	"github.com/Astemirdum/library-management/pkg/serializer"
)

func jsonUnmarshal(data []byte, v any) error {
	return serializer.Unmarshal(data, v)
}
