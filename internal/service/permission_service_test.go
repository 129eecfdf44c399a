package service

import (
	"regexp"
	"testing"
)

func TestParseRestriction(t *testing.T) {
	for _, value := range []string{"", "ORGANIZATION", "COURSE", "RUN"} {
		if _, err := ParseRestriction(value); err != nil {
			t.Fatalf("ParseRestriction(%q): %v", value, err)
		}
	}
	for _, value := range []string{"course", "SITE", " RUN"} {
		if _, err := ParseRestriction(value); err == nil {
			t.Fatalf("ParseRestriction(%q) expected error", value)
		}
	}
}

func TestCoursePatternMatch(t *testing.T) {
	org, course, run, ok := CoursePatternMatch("course-v1:org1+course1+run1")
	if !ok || org != "org1" || course != "course1" || run != "run1" {
		t.Fatalf("unexpected match: %q %q %q %v", org, course, run, ok)
	}
	if _, _, _, ok := CoursePatternMatch("lti-context-42"); ok {
		t.Fatalf("expected no match")
	}
}

func TestAccessPattern(t *testing.T) {
	const courseID = "course-v1:org1+course1+run1"

	tests := []struct {
		name        string
		restriction Restriction
		courseID    string
		visible     []string
		hidden      []string
	}{
		{
			name:        "organization",
			restriction: RestrictionOrganization,
			courseID:    courseID,
			visible:     []string{courseID, "course-v1:org1+course2+run1", "course-v1:org1+course1+run2"},
			hidden:      []string{"course-v1:org2+course1+run1", "course-v1:org10+course1+run1"},
		},
		{
			name:        "course",
			restriction: RestrictionCourse,
			courseID:    courseID,
			visible:     []string{courseID, "course-v1:org1+course1+run2"},
			hidden:      []string{"course-v1:org1+course2+run1", "course-v1:org1+course10+run1", "course-v1:org2+course1+run1"},
		},
		{
			name:        "run",
			restriction: RestrictionRun,
			courseID:    courseID,
			visible:     []string{courseID, courseID + "+type@video"},
			hidden:      []string{"course-v1:org1+course1+run2", "course-v1:org1+course1+run10"},
		},
		{
			name:        "unparseable course id",
			restriction: RestrictionCourse,
			courseID:    "context.(1)",
			visible:     []string{"context.(1)"},
			hidden:      []string{"context.(1)x", "contextx(1)", "x" + "context.(1)"},
		},
		{
			name:        "quoted components",
			restriction: RestrictionCourse,
			courseID:    "course-v1:o.g+c*1+r",
			visible:     []string{"course-v1:o.g+c*1+r2"},
			hidden:      []string{"course-v1:oxg+c*1+r", "course-v1:o.g+cc1+r"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pattern, err := AccessPattern(tt.restriction, tt.courseID)
			if err != nil {
				t.Fatalf("AccessPattern: %v", err)
			}
			re := regexp.MustCompile(pattern)
			for _, id := range tt.visible {
				if !re.MatchString(id) {
					t.Fatalf("pattern %q should match %q", pattern, id)
				}
			}
			for _, id := range tt.hidden {
				if re.MatchString(id) {
					t.Fatalf("pattern %q should not match %q", pattern, id)
				}
			}
		})
	}
}

func TestAccessPatternWithoutRestriction(t *testing.T) {
	pattern, err := AccessPattern(RestrictionNone, "anything")
	if err != nil {
		t.Fatalf("AccessPattern: %v", err)
	}
	if pattern != "" {
		t.Fatalf("expected empty pattern, got %q", pattern)
	}
	if _, err := AccessPattern(Restriction("SITE"), "anything"); err == nil {
		t.Fatalf("expected error for unknown restriction")
	}
}

func TestRunPatternMatchesOnlySameRun(t *testing.T) {
	permissions, err := NewPermissionService("RUN")
	if err != nil {
		t.Fatalf("NewPermissionService: %v", err)
	}
	if permissions.Restriction() != RestrictionRun {
		t.Fatalf("unexpected restriction: %q", permissions.Restriction())
	}
	pattern, err := permissions.VisiblePattern("course-v1:a+b+c")
	if err != nil {
		t.Fatalf("VisiblePattern: %v", err)
	}
	re := regexp.MustCompile(pattern)
	if !re.MatchString("course-v1:a+b+c") {
		t.Fatalf("expected access to the same run")
	}
	if re.MatchString("course-v1:a+b+d") {
		t.Fatalf("expected no access to another run")
	}

	if _, err := NewPermissionService("everything"); err == nil {
		t.Fatalf("expected configuration error")
	}
}
