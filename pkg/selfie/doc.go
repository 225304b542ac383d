// Package selfie captures, downscales and uploads the clock-in selfie.
package selfie
