// Package entry implements the segmented command log. It supports CRC
// validation, size-based rotation, replay iteration and snapshot-driven
// truncation.
package entry
