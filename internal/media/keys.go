package media

import "fmt"

// Key builders for the blob layout. Bases take the client-chosen extension
// at upload time, so readers locate them with FindByExt.

func ProductBase(id string) string            { return "products/" + id }
func SecondaryBase(id string) string          { return "products/" + id + "_secondary" }
func ExtraBase(id string, n int) string       { return fmt.Sprintf("products/%s_extra_%d", id, n) }
func AttachedBackgroundBase(id string) string { return "products/" + id + "_background" }
func BackgroundBase(id string) string         { return "backgrounds/" + id }

// RealizedKey is the per-item cached de-mockup image. Always PNG: it is
// produced by the model, not uploaded.
func RealizedKey(id string) string { return "products/" + id + "_realized.png" }

// OutputKey stores one generated image.
func OutputKey(imageID, ext string) string { return "outputs/" + imageID + "." + ext }
