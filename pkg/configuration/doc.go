// Package configuration provides loading and validation facilities for
// treewatch's YAML configuration files.
package configuration
