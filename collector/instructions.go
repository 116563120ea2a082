package collector

import (
	"fmt"
	"strings"

	"github.com/aluiziolira/go-collect-posts/models"
)

const overlaySteps = `If a login dialog or any other overlay covers the page, close it first:
1. look for a close button (an "x" or "close" control) and click it;
2. otherwise click an empty area outside the dialog;
3. otherwise press Escape.`

func scoutInstruction(sourceURL string) string {
	return fmt.Sprintf(`Open %s.

%s

Then identify every post card on the page and report:
- how many posts are visible;
- where each post sits and how it can be identified;
- how the cards are laid out.

Do not click anything else. Only observe and report.`, sourceURL, overlaySteps)
}

func listInstruction(sourceURL string, maxItems int) string {
	return fmt.Sprintf(`You are on %s.

List the first %d posts of the feed in display order. For each post give:
- position: its 1-based order on the page;
- title: the post title;
- author: the author nickname;
- likes: the like count exactly as shown;
- url: the link of the post, if it is visible.

Return a JSON array of objects with the keys position, title, author, likes and url.`, sourceURL, maxItems)
}

// detailInstruction is self-contained: it names the post explicitly so it does not depend on
// where an earlier task left the shared session.
func detailInstruction(sourceURL string, item models.ItemSummary) string {
	var b strings.Builder
	if item.URL != "" {
		fmt.Fprintf(&b, "Open the post at %s.\n", item.URL)
	} else {
		fmt.Fprintf(&b, "On %s, open post number %d of the feed", sourceURL, item.Position)
		if item.Title != "" {
			fmt.Fprintf(&b, " titled %q", item.Title)
		}
		if item.Author != "" {
			fmt.Fprintf(&b, " by %s", item.Author)
		}
		b.WriteString(".\n")
	}
	b.WriteString(`
Extract:
- title, author and publish_time;
- likes, collections and comments_count exactly as shown;
- content: the full body text;
- tags: the list of hashtags;
- top_comments: up to 10 comments, each with nickname, content, likes and time.

Return one JSON object with the keys title, author, publish_time, likes, collections,
comments_count, content, tags and top_comments.
`)
	fmt.Fprintf(&b, "\nWhen you are done, return to %s.", sourceURL)
	return b.String()
}
