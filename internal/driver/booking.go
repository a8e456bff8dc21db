package driver

import (
	"context"
	"fmt"
	"strings"

	"github.com/playwright-community/playwright-go"

	"github.com/courtbot-app/courtbot/internal/slots"
)

// AvailableTimes enumerates the bookable slot labels on the current
// schedule. Four strategies escalate from the specific slot selector to
// a full scan of generic blocks; the first that yields anything wins.
// An empty result means no open courts, which is a valid answer.
func (d *Driver) AvailableTimes(ctx context.Context) ([]string, error) {
	if err := d.requireAtLeast("getAvailableTimes", stateNavigated); err != nil {
		return nil, err
	}

	els, err := d.page.QuerySelectorAll(slotSelector)
	if err != nil {
		return nil, fmt.Errorf("slot query failed: %w", err)
	}

	if len(els) == 0 {
		// The grid renders late on slow days; give it one explicit wait.
		if _, werr := d.page.WaitForSelector(slotSelector, playwright.PageWaitForSelectorOptions{
			Timeout: playwright.Float(shortWaitMs),
		}); werr == nil {
			els, _ = d.page.QuerySelectorAll(slotSelector)
		}
	}

	if len(els) == 0 {
		els, _ = d.page.QuerySelectorAll(slotContainerSelector + " " + slotSelector)
	}

	if len(els) == 0 {
		els = d.scanGenericBlocks()
	}

	labels := make([]string, 0, len(els))
	for _, el := range els {
		text, err := el.TextContent()
		if err != nil {
			continue
		}
		trimmed := strings.TrimSpace(text)
		if isSlotLabelText(trimmed) {
			labels = append(labels, trimmed)
		}
	}

	return slots.Dedupe(labels), nil
}

// scanGenericBlocks is the last-resort enumeration: every generic block
// element whose trimmed visible text looks like a slot label.
func (d *Driver) scanGenericBlocks() []playwright.ElementHandle {
	els, err := d.page.QuerySelectorAll(genericBlockSelector)
	if err != nil {
		return nil
	}

	var matched []playwright.ElementHandle
	for _, el := range els {
		text, err := el.TextContent()
		if err != nil {
			continue
		}
		if !isSlotLabelText(text) {
			continue
		}
		visible, err := el.IsVisible()
		if err != nil || !visible {
			continue
		}
		matched = append(matched, el)
	}
	return matched
}

// BookCourt selects the slot whose label starts with the requested time,
// attaches the companion and confirms. It returns false (not an error)
// when the slot or the confirm control cannot be found, reserving errors
// for infrastructure faults.
func (d *Driver) BookCourt(ctx context.Context, requested string) (bool, error) {
	if err := d.requireAtLeast("bookCourt", stateNavigated); err != nil {
		return false, err
	}

	els, err := d.page.QuerySelectorAll(slotSelector)
	if err != nil {
		return false, fmt.Errorf("slot query failed: %w", err)
	}
	if len(els) == 0 {
		els = d.scanGenericBlocks()
	}

	clicked := false
	for _, el := range els {
		text, err := el.TextContent()
		if err != nil {
			continue
		}
		if !slots.Matches(requested, text) {
			continue
		}
		// Duplicates of the same label render for some intervals; one
		// successful click is enough and the rest are ignored.
		_ = el.ScrollIntoViewIfNeeded()
		if err := clickWithRetry(el); err != nil {
			return false, fmt.Errorf("slot click failed: %w", err)
		}
		clicked = true
		break
	}
	if !clicked {
		d.log.Info().Str("time", requested).Msg("no slot label matched requested time")
		return false, nil
	}
	d.state = stateSlotSelected

	// Some layouts auto-advance after the slot click, so a missing Next
	// control is only a warning.
	if err := d.clickStructural(nextButtonSelector, shortWaitMs); err != nil {
		d.log.Warn().Err(err).Msg("next control not clicked, assuming auto-advance")
	}

	if err := d.selectCompanion(); err != nil {
		return false, fmt.Errorf("companion selection failed: %w", err)
	}
	d.state = stateBuddySelected

	confirmed, err := d.confirmBooking()
	if err != nil {
		return false, err
	}
	if !confirmed {
		return false, nil
	}

	d.state = stateConfirmed
	return true, nil
}

// selectCompanion attaches the required second participant. Likely list
// positions first, then the generic list's first entry, then a text
// match against known partner names. A booking without the companion is
// incomplete, so exhausting every strategy is an error.
func (d *Driver) selectCompanion() error {
	for _, sel := range companionStructuralSelectors {
		if err := d.page.Click(sel, playwright.PageClickOptions{
			Timeout: playwright.Float(shortWaitMs),
		}); err == nil {
			return nil
		}
	}

	if els, err := d.page.QuerySelectorAll(companionListSelector); err == nil && len(els) > 0 {
		if err := clickWithRetry(els[0]); err == nil {
			return nil
		}
	}

	for _, name := range d.opts.Companions {
		if err := d.page.Click("text="+name, playwright.PageClickOptions{
			Timeout: playwright.Float(shortWaitMs),
		}); err == nil {
			return nil
		}
	}

	return fmt.Errorf("no companion control found by any strategy")
}

// confirmBooking scans buttons for confirmation wording and clicks the
// first visible match, falling back to the first visible button of any
// kind. Returns false when no button exists at all.
func (d *Driver) confirmBooking() (bool, error) {
	buttons, err := d.page.QuerySelectorAll("button")
	if err != nil {
		return false, fmt.Errorf("button scan failed: %w", err)
	}

	var firstVisible playwright.ElementHandle
	for _, b := range buttons {
		visible, err := b.IsVisible()
		if err != nil || !visible {
			continue
		}
		if firstVisible == nil {
			firstVisible = b
		}
		text, err := b.TextContent()
		if err != nil {
			continue
		}
		if containsAnyFold(text, confirmTextWords) {
			if err := clickWithRetry(b); err != nil {
				return false, fmt.Errorf("confirm click failed: %w", err)
			}
			return true, nil
		}
	}

	// Last resort: some layouts label the confirm control with only an
	// icon.
	if firstVisible != nil {
		if err := clickWithRetry(firstVisible); err != nil {
			return false, fmt.Errorf("fallback confirm click failed: %w", err)
		}
		return true, nil
	}

	d.log.Info().Msg("no confirmation control found on booking page")
	return false, nil
}
