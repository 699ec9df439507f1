// Package confloader loads layered configuration with koanf.
//
// Sources, highest priority first:
//
//  1. Command-line flags (LoadFlags)
//  2. Environment variables (WI_SECTION_KEY)
//  3. A YAML configuration file
//  4. Whatever the target struct already holds
//
// Only keys present in a source are written, so pre-filling the target with
// defaults gives the lowest layer. The loader records which keys each layer
// set; Origin answers where an effective value came from.
package confloader
