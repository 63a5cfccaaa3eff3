//go:build !race

package coco

const raceEnabled = false
