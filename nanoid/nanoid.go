package nanoid

import (
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	defaultSize = 16

	lowercase     = "abcdefghijklmnopqrstuvwxyz"
	uppercase     = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	numbers       = "0123456789"
	lowerUpper    = lowercase + uppercase
	numLowerUpper = numbers + lowerUpper
)

func getSize(l ...int) int {
	size := defaultSize
	if len(l) > 0 {
		size = l[0]
	}
	return size
}

// Must generates optional length nanoid
func Must(l ...int) string {
	size := getSize(l...)
	return gonanoid.Must(size)
}

// String generates optional length nanoid from mixed-case letters
func String(l ...int) string {
	size := getSize(l...)
	return gonanoid.MustGenerate(lowerUpper, size)
}

// Lower generates optional length lowercase nanoid
func Lower(l ...int) string {
	size := getSize(l...)
	return gonanoid.MustGenerate(lowercase, size)
}

// Number generates optional length numeric nanoid
func Number(l ...int) string {
	size := getSize(l...)
	return gonanoid.MustGenerate(numbers, size)
}

// PrimaryKey generates a key starting with a letter, suitable as an
// identifier
func PrimaryKey(l ...int) string {
	size := getSize(l...)
	id := gonanoid.MustGenerate(numLowerUpper, size)
	for strings.ContainsAny(id[:1], numbers) {
		id = gonanoid.MustGenerate(numLowerUpper, size)
	}
	return id
}
