// Package urls holds the documentation links printed in install hints and
// troubleshooting tips, so they can be updated in one place.
package urls
