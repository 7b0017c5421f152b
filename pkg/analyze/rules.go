package analyze

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Sriram-PR/seo-auditor/pkg/config"
	"github.com/Sriram-PR/seo-auditor/pkg/models"
)

// IssuePageUnreachable is the single issue carried by error records
const IssuePageUnreachable = "Page unreachable"

// ogImageIssue returns the issue for an unhealthy OG image class, or "" when none applies
func ogImageIssue(status models.OGImageStatus, imageURL string) string {
	switch {
	case status.IsHealthy():
		return ""
	case status == models.OGImageNotFound:
		return "OG image returns 404: " + imageURL
	case status == models.OGImageRedirect:
		return "OG image redirects: " + imageURL
	case status == models.OGImageUnreachable:
		return "OG image unreachable: " + imageURL
	case strings.HasPrefix(string(status), "error-"):
		return fmt.Sprintf("OG image returns error %s: %s", strings.TrimPrefix(string(status), "error-"), imageURL)
	}
	return ""
}

// evaluateRules applies every content rule to meta. No rule short-circuits another.
func evaluateRules(meta *models.PageMetadata, rules config.RuleConfig) []string {
	var issues []string

	titleLen := utf8.RuneCountInString(meta.Title)
	switch {
	case titleLen == 0:
		issues = append(issues, "Missing title")
	case titleLen < rules.TitleMinLength:
		issues = append(issues, fmt.Sprintf("Title too short (%d chars, min %d)", titleLen, rules.TitleMinLength))
	case titleLen > rules.TitleMaxLength:
		issues = append(issues, fmt.Sprintf("Title too long (%d chars, max %d)", titleLen, rules.TitleMaxLength))
	}

	descLen := utf8.RuneCountInString(meta.Description)
	switch {
	case descLen == 0:
		issues = append(issues, "Missing meta description")
	case descLen < rules.DescriptionMinLength:
		issues = append(issues, fmt.Sprintf("Meta description too short (%d chars, min %d)", descLen, rules.DescriptionMinLength))
	case descLen > rules.DescriptionMaxLength:
		issues = append(issues, fmt.Sprintf("Meta description too long (%d chars, max %d)", descLen, rules.DescriptionMaxLength))
	}

	if meta.OGImage == "" {
		issues = append(issues, "Missing OG image")
	}

	switch {
	case meta.H1Count == 0:
		issues = append(issues, "Missing H1 heading")
	case meta.H1Count > 1:
		issues = append(issues, fmt.Sprintf("Multiple H1 headings (%d)", meta.H1Count))
	}

	if meta.ImagesWithoutAlt > 0 {
		issues = append(issues, fmt.Sprintf("%d images without alt attribute", meta.ImagesWithoutAlt))
	}

	if meta.Canonical == "" {
		issues = append(issues, "Missing canonical URL")
	}

	robots := strings.ToLower(meta.Robots)
	if strings.Contains(robots, "noindex") {
		issues = append(issues, "Page set to noindex")
	}
	if strings.Contains(robots, "nofollow") {
		issues = append(issues, "Page set to nofollow")
	}

	return issues
}

// evaluateHeuristics applies the structured-data and static-markup weight rules
func evaluateHeuristics(meta *models.PageMetadata, rules config.RuleConfig) []string {
	var issues []string

	switch {
	case !meta.HasStructuredData:
		issues = append(issues, "Missing structured data (JSON-LD)")
	case !meta.StructuredDataValid:
		issues = append(issues, "Invalid structured data (JSON-LD missing @context or @type)")
	}

	if meta.DOMSize > rules.MaxDOMElements {
		issues = append(issues, fmt.Sprintf("Large DOM size (%d elements)", meta.DOMSize))
	}
	if meta.ExternalScripts > rules.MaxExternalScripts {
		issues = append(issues, fmt.Sprintf("Too many external scripts (%d)", meta.ExternalScripts))
	}
	if meta.LargestImageBytes > rules.MaxImageBytes {
		issues = append(issues, fmt.Sprintf("Large image detected (%d bytes)", meta.LargestImageBytes))
	}

	return issues
}
