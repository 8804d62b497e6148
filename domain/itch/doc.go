// Package itch decodes NASDAQ ITCH style market data frames.
// Each frame is a 2-byte length marker, a 1-byte message tag and a
// fixed-length payload whose size is determined by the tag.
package itch
