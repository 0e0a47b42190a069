package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"jansarthi-be/client"
	"jansarthi-be/models"
	"jansarthi-be/utils"
)

const timeLayout = "02 Jan 2006 15:04"

func table(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

func str(p *string) string {
	if p == nil {
		return "-"
	}
	return *p
}

func printOTP(w io.Writer, r *models.OTPResponse) {
	fmt.Fprintln(w, r.Message)
	fmt.Fprintf(w, "Sent to %s, valid for %d minutes. You can ask for a new code after %d seconds.\n",
		utils.FormatPhone(r.MobileNumber), r.ExpiresInMinutes, int(client.ResendCooldown.Seconds()))
}

func printUser(w io.Writer, u *models.User) {
	t := table(w)
	fmt.Fprintf(t, "ID:\t%d\n", u.ID)
	fmt.Fprintf(t, "Name:\t%s\n", u.Name)
	fmt.Fprintf(t, "Mobile:\t%s\n", utils.FormatPhone(u.MobileNumber))
	fmt.Fprintf(t, "Role:\t%s\n", u.Role)
	fmt.Fprintf(t, "Active:\t%t\n", u.IsActive)
	fmt.Fprintf(t, "Verified:\t%t\n", u.IsVerified)
	if u.VillageName != nil {
		fmt.Fprintf(t, "Village:\t%s\n", *u.VillageName)
	}
	t.Flush()
}

// printTracker renders the four stage progress line, e.g.
// [x] Reported  [x] Assigned  [ ] In Progress  [ ] Completed
func printTracker(w io.Writer, s models.IssueStatus) {
	for i, st := range client.Tracker(s) {
		mark := " "
		if st.Done {
			mark = "x"
		}
		if i > 0 {
			fmt.Fprint(w, "  ")
		}
		fmt.Fprintf(w, "[%s] %s", mark, st.Name)
	}
	fmt.Fprintln(w)
}

func printIssue(w io.Writer, i *models.IssueResponse) {
	t := table(w)
	fmt.Fprintf(t, "Issue:\t#%d\n", i.ID)
	fmt.Fprintf(t, "Type:\t%s\n", i.IssueType.Label())
	fmt.Fprintf(t, "Status:\t%s\n", i.Status.Label())
	fmt.Fprintf(t, "Location:\t%.6f, %.6f\n", i.Latitude, i.Longitude)
	if i.WardID != nil {
		fmt.Fprintf(t, "Ward:\t%d %s\n", *i.WardID, str(i.WardName))
	}
	fmt.Fprintf(t, "Reported:\t%s\n", i.CreatedAt.Local().Format(timeLayout))
	fmt.Fprintf(t, "Photos:\t%d\n", len(i.Photos))
	t.Flush()
	fmt.Fprintln(w, i.Description)
	printTracker(w, i.Status)
}

func printIssues(w io.Writer, items []models.IssueResponse) {
	if len(items) == 0 {
		fmt.Fprintln(w, "No reports.")
		return
	}
	t := table(w)
	fmt.Fprintln(t, "ID\tTYPE\tSTATUS\tREPORTED")
	for _, i := range items {
		fmt.Fprintf(t, "%d\t%s\t%s\t%s\n", i.ID, i.IssueType, i.Status.Label(), i.CreatedAt.Local().Format(timeLayout))
	}
	t.Flush()
}

func printAdminIssues(w io.Writer, items []models.AdminIssueResponse) {
	if len(items) == 0 {
		fmt.Fprintln(w, "No issues.")
		return
	}
	t := table(w)
	fmt.Fprintln(t, "ID\tTYPE\tSTATUS\tREPORTER\tPARSHAD")
	for _, i := range items {
		reporter, parshad := "-", "-"
		if i.Reporter != nil {
			reporter = i.Reporter.Name
		}
		if i.AssignedParshad != nil {
			parshad = i.AssignedParshad.Name
		}
		fmt.Fprintf(t, "%d\t%s\t%s\t%s\t%s\n", i.ID, i.IssueType, i.Status.Label(), reporter, parshad)
	}
	t.Flush()
}

func printPageFooter(w io.Writer, page, pages int, total int64) {
	fmt.Fprintf(w, "Page %d of %d (%d total)\n", page, pages, total)
}

func printMap(w io.Writer, items []models.IssueMapItem) {
	t := table(w)
	fmt.Fprintln(t, "ID\tTYPE\tSTATUS\tLAT\tLON\tCOLOUR")
	for _, i := range items {
		fmt.Fprintf(t, "%d\t%s\t%s\t%.5f\t%.5f\t%s\n", i.ID, i.IssueType, i.Status, i.Latitude, i.Longitude, client.IssueColor(i.IssueType))
	}
	t.Flush()
	box, ok := client.MapBounds(items)
	if !ok {
		c := client.DefaultCenter
		fmt.Fprintf(w, "No mappable reports; centre on %.4f, %.4f\n", c.Lat, c.Lon)
		return
	}
	fmt.Fprintf(w, "Bounds: %.5f,%.5f to %.5f,%.5f\n", box.South, box.West, box.North, box.East)
}

func printWards(w io.Writer, list *client.WardList) {
	t := table(w)
	fmt.Fprintln(t, "WARD\tNAME\tHINDI\tPARSHAD\tPHONE")
	for _, wd := range list.Items {
		phone := "-"
		if wd.Phone != nil {
			phone = utils.FormatPhone(*wd.Phone)
		}
		fmt.Fprintf(t, "%d\t%s\t%s\t%s\t%s\n", wd.ID, wd.Name, wd.NameHindi, wd.ParshadName, phone)
	}
	t.Flush()
	fmt.Fprintf(w, "%d wards\n", list.Total)
}

func printParshads(w io.Writer, list *models.ParshadList) {
	t := table(w)
	fmt.Fprintln(t, "ID\tNAME\tMOBILE\tVILLAGE")
	for _, p := range list.Items {
		fmt.Fprintf(t, "%d\t%s\t%s\t%s\n", p.ID, p.Name, utils.FormatPhone(p.MobileNumber), str(p.VillageName))
	}
	t.Flush()
	fmt.Fprintf(w, "%d parshads\n", list.Total)
}

func printPWDDashboard(w io.Writer, d *models.PWDDashboard) {
	t := table(w)
	fmt.Fprintf(t, "Total issues:\t%d\n", d.TotalIssues)
	fmt.Fprintf(t, "Unassigned:\t%d\n", d.UnassignedIssues)
	fmt.Fprintf(t, "Assigned:\t%d\n", d.AssignedIssues)
	fmt.Fprintf(t, "In progress:\t%d\n", d.InProgressIssues)
	fmt.Fprintf(t, "Completed:\t%d\n", d.CompletedIssues)
	fmt.Fprintf(t, "Today:\t%d\n", d.IssuesToday)
	fmt.Fprintf(t, "This week:\t%d\n", d.IssuesThisWeek)
	fmt.Fprintf(t, "Parshads:\t%d (%d with open work)\n", d.TotalParshads, d.ActiveParshads)
	for _, it := range models.IssueTypes {
		fmt.Fprintf(t, "  %s:\t%d\n", it.Label(), d.IssuesByType[it])
	}
	t.Flush()
}

func printParshadDashboard(w io.Writer, d *models.ParshadDashboard) {
	t := table(w)
	fmt.Fprintf(t, "Assigned to you:\t%d\n", d.TotalAssigned)
	fmt.Fprintf(t, "Awaiting acknowledgement:\t%d\n", d.PendingAcknowledgement)
	fmt.Fprintf(t, "In progress:\t%d\n", d.InProgress)
	fmt.Fprintf(t, "Completed:\t%d\n", d.Completed)
	t.Flush()
}

func printLookup(w io.Writer, r *models.ParshadLookupResponse) {
	fmt.Fprintln(w, r.Message)
	if !r.Found || r.ParshadID == nil {
		return
	}
	t := table(w)
	fmt.Fprintf(t, "Parshad:\t%s\n", str(r.ParshadName))
	if r.ParshadMobile != nil {
		fmt.Fprintf(t, "Mobile:\t%s\n", utils.FormatPhone(*r.ParshadMobile))
	}
	fmt.Fprintf(t, "Village:\t%s\n", str(r.ParshadVillage))
	fmt.Fprintf(t, "Cluster:\t%s\n", str(r.ClusterName))
	if r.DistanceFromClusterCenter != nil {
		fmt.Fprintf(t, "Distance:\t%.2f m\n", *r.DistanceFromClusterCenter)
	}
	t.Flush()
}
