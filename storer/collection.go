package storer

import (
	"fmt"
	"strings"
)

type Distance string

const (
	Cosine    Distance = "COSINE"
	Dot       Distance = "DOT"
	Euclidean Distance = "EUCLIDEAN"
)

func ParseDistance(s string) (Distance, error) {
	switch Distance(strings.ToUpper(strings.TrimSpace(s))) {
	case Cosine, "":
		return Cosine, nil
	case Dot:
		return Dot, nil
	case Euclidean, "EUCLID":
		return Euclidean, nil
	}
	return "", fmt.Errorf("unknown distance metric %q", s)
}

type Collection struct {
	Name       string
	VectorSize int
	Distance   Distance
}
