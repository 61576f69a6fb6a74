// Package lcdpipe implements the rendering pipeline for a parallel-bus
// RGB565 LCD panel driven through a DMA-capable transfer engine.
//
// The pipeline is built from a double-buffered framebuffer pair, a zone
// registry with dirty-rectangle tracking, a descriptor chain builder that
// slices dirty regions into hardware-legal transfer chunks, and a panel
// protocol driver that walks the chain through the engine. A frame
// scheduler paces the whole thing and publishes telemetry counters.
//
// Everything hardware-specific sits behind the Engine interface, so the
// pipeline runs identically against a periph.io SPI connection, the
// in-memory engine used by tests, or the desktop simulator.
package lcdpipe
