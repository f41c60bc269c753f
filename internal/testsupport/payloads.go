package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// CallbackXML renders a provider notification document.
func CallbackXML(mediaID, status string) string {
	return fmt.Sprintf("<?xml version=\"1.0\"?>\n<result><mediaid>%s</mediaid><status>%s</status></result>\n", mediaID, status)
}

// AddMediaResponse renders the provider's synchronous acknowledgement.
func AddMediaResponse(mediaID string) string {
	return fmt.Sprintf("<?xml version=\"1.0\"?>\n<response><message>Added</message><MediaID>%s</MediaID></response>\n", mediaID)
}

// WriteCallbackFile writes a notification document under the test temp dir.
func WriteCallbackFile(t testing.TB, mediaID, status string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "callback.xml")
	if err := os.WriteFile(path, []byte(CallbackXML(mediaID, status)), 0o644); err != nil {
		t.Fatalf("write callback: %v", err)
	}
	return path
}
