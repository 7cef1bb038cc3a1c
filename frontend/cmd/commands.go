package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	ishell "github.com/abiosoft/ishell"
	"github.com/common-nighthawk/go-figure"
	"github.com/savepoint/savepoint/frontend/client"
	"github.com/savepoint/savepoint/lib/utils"
)

// guestCommands holds the commands available before signing in.
var guestCommands []Command

// userCommands holds the commands available only to signed in users.
var userCommands []Command

// commonCommands holds the commands available regardless of login state.
var commonCommands []Command

// loggedIn tracks whether a user is currently signed in.
var loggedIn bool

// shell is the interactive shell instance for the application.
var shell *ishell.Shell

// Command defines one shell command: its name, a short description, and the
// function to run when it is invoked.
type Command struct {
	Name string
	Desc string
	Func func(c *ishell.Context)
}

// switchToUser swaps the guest command set for the user command set.
func switchToUser() {
	loggedIn = true
	for _, command := range guestCommands {
		shell.DeleteCmd(command.Name)
	}
	addCommands(shell, userCommands)
}

// switchToGuest swaps the user command set for the guest command set.
func switchToGuest() {
	loggedIn = false
	for _, command := range userCommands {
		shell.DeleteCmd(command.Name)
	}
	addCommands(shell, guestCommands)
}

// fail prints the error and, when the session has expired, drops back to the
// guest command set so the user can sign in again.
func fail(err error) {
	if err == client.ErrSessionExpired {
		utils.PrintError("Session expired, please sign in again by typing 'signin' in the terminal.")
		switchToGuest()
		return
	}
	utils.PrintError(err.Error())
}

// promptNonEmpty keeps asking until the user enters a non-empty line.
func promptNonEmpty(c *ishell.Context, prompt string) string {
	for {
		c.Print(prompt)
		line := strings.TrimSpace(c.ReadLine())
		if line != "" {
			return line
		}
		c.Println("A value is required.")
	}
}

// promptYesNo keeps asking until the user answers yes or no.
func promptYesNo(c *ishell.Context, prompt string) bool {
	for {
		c.Print(prompt + " (yes/no): ")
		response := strings.ToLower(strings.TrimSpace(c.ReadLine()))
		if response == "yes" {
			return true
		}
		if response == "no" {
			return false
		}
		c.Println("Invalid response. Please type 'yes' or 'no'.")
	}
}

// pickHabit lists the user's habits and asks for a number.
func pickHabit(c *ishell.Context) (id string, title string, ok bool) {
	habits, err := client.ListHabits()
	if err != nil {
		fail(err)
		return "", "", false
	}
	if len(habits) == 0 {
		c.Println("You have no habits yet. Add one with 'addhabit'.")
		return "", "", false
	}
	for i, h := range habits {
		status := ""
		if !h.IsActive {
			status = " (inactive)"
		}
		c.Printf("  %d. %s [%s] streak %d%s\n", i+1, h.Title, h.Category, h.Stats.CurrentStreak, status)
	}
	for {
		c.Print("Pick a habit by number: ")
		n, err := strconv.Atoi(strings.TrimSpace(c.ReadLine()))
		if err == nil && n >= 1 && n <= len(habits) {
			return habits[n-1].ID.Hex(), habits[n-1].Title, true
		}
		c.Println("Please enter a number from the list.")
	}
}

// pickTask lists the user's tasks and asks for a number.
func pickTask(c *ishell.Context) (id string, title string, ok bool) {
	tasks, err := client.ListTasks()
	if err != nil {
		fail(err)
		return "", "", false
	}
	if len(tasks) == 0 {
		c.Println("You have no tasks yet. Add one with 'addtask'.")
		return "", "", false
	}
	for i, task := range tasks {
		due := ""
		if task.DueDate != nil {
			due = " due " + task.DueDate.Format("2006-01-02")
		}
		c.Printf("  %d. %s [%s/%s]%s\n", i+1, task.Title, task.Status, task.Priority, due)
	}
	for {
		c.Print("Pick a task by number: ")
		n, err := strconv.Atoi(strings.TrimSpace(c.ReadLine()))
		if err == nil && n >= 1 && n <= len(tasks) {
			return tasks[n-1].ID.Hex(), tasks[n-1].Title, true
		}
		c.Println("Please enter a number from the list.")
	}
}

// InitCommands initializes the shell and defines the guest, user, and common
// command sets.
func InitCommands() {
	shell = ishell.New()

	guestCommands = []Command{
		{
			Name: "signin",
			Desc: "Sign in to your account",
			Func: func(c *ishell.Context) {
				username := promptNonEmpty(c, "Enter Username: ")

				var password string
				for {
					c.Print("Enter Password: ")
					password = c.ReadPassword()
					if len(password) > 0 {
						break
					}
					c.Println("Password cannot be empty.")
				}

				confirmed, err := client.SignIn(username, password)
				if err != nil {
					utils.PrintError(err.Error())
					return
				}
				c.Println("Welcome back, you are now signed in.")
				if !confirmed {
					c.Println("Your email is not confirmed yet. Use the 'confirm' command once you have your token.")
				}
				switchToUser()
			},
		},
		{
			Name: "signup",
			Desc: "Sign up for a new account",
			Func: func(c *ishell.Context) {
				username := promptNonEmpty(c, "Enter Username: ")

				var email string
				for {
					c.Print("Enter Email: ")
					email = strings.TrimSpace(c.ReadLine())
					if utils.ValidateEmail(email) {
						break
					}
					c.Println("Email is not valid.")
				}

				var password string
				for {
					c.Print("Enter Password: ")
					password = c.ReadPassword()
					if utils.ValidatePassword(password) {
						c.Print("Confirm Password: ")
						confirmPassword := c.ReadPassword()
						if password == confirmPassword {
							break
						}
						c.Println()
						c.Println("Passwords do not match. Please try again.")
						c.Println()
					} else {
						c.Println()
						c.Println("Password must be at least 8 characters and contain both letters and numbers.")
						c.Println()
					}
				}

				if err := client.SignUp(username, email, password); err != nil {
					utils.PrintError(err.Error())
					return
				}
				c.Println("Account created successfully. You are now signed in.")
				c.Println("Please check your email and confirm your account using the 'confirm' command.")
				switchToUser()
			},
		},
	}

	userCommands = []Command{
		{
			Name: "progress",
			Desc: "Show your level, points, streak, and badges",
			Func: func(c *ishell.Context) {
				snapshot, err := client.GetProgress()
				if err != nil {
					fail(err)
					return
				}
				c.Printf("Level %d  |  %d points\n", snapshot.Level, snapshot.Points)
				c.Printf("  %d/%d points into this level (%.0f%%)\n",
					snapshot.LevelProgress.PointsInLevel, snapshot.LevelProgress.PointsNeeded, snapshot.LevelProgress.Percentage)
				c.Printf("  Check-in streak: %d (longest %d)\n", snapshot.Streak.Current, snapshot.Streak.Longest)
				c.Printf("  Habits completed today: %d of %d active\n", snapshot.CompletedToday, snapshot.ActiveHabits)
				c.Printf("  Tasks: %d open, %d completed\n", snapshot.TasksOpen, snapshot.TasksCompleted)
				if len(snapshot.Badges) == 0 {
					c.Println("  No badges yet.")
					return
				}
				c.Println("  Badges:")
				for _, b := range snapshot.Badges {
					c.Printf("    %s %s - %s\n", b.Icon, b.Name, b.Description)
				}
			},
		},
		{
			Name: "habits",
			Desc: "List your habits",
			Func: func(c *ishell.Context) {
				habits, err := client.ListHabits()
				if err != nil {
					fail(err)
					return
				}
				if len(habits) == 0 {
					c.Println("You have no habits yet. Add one with 'addhabit'.")
					return
				}
				for _, h := range habits {
					status := ""
					if !h.IsActive {
						status = " (inactive)"
					}
					c.Printf("  %s [%s] streak %d, longest %d, %d total%s\n",
						h.Title, h.Category, h.Stats.CurrentStreak, h.Stats.LongestStreak, h.Stats.TotalCompletions, status)
				}
			},
		},
		{
			Name: "addhabit",
			Desc: "Create a new habit",
			Func: func(c *ishell.Context) {
				title := promptNonEmpty(c, "Habit title: ")
				c.Println("Categories: health, fitness, learning, productivity, mindfulness, social, creative, finance")
				category := promptNonEmpty(c, "Category: ")
				c.Print("Frequency (daily/weekly/custom, default daily): ")
				frequency := strings.TrimSpace(c.ReadLine())
				c.Print("Icon (optional): ")
				icon := strings.TrimSpace(c.ReadLine())

				habit, err := client.CreateHabit(title, category, frequency, icon)
				if err != nil {
					fail(err)
					return
				}
				c.Printf("Habit '%s' created.\n", habit.Title)
			},
		},
		{
			Name: "done",
			Desc: "Mark a habit as completed",
			Func: func(c *ishell.Context) {
				id, title, ok := pickHabit(c)
				if !ok {
					return
				}
				c.Print("Date (YYYY-MM-DD, empty for today): ")
				date := strings.TrimSpace(c.ReadLine())
				c.Print("Note (optional): ")
				note := strings.TrimSpace(c.ReadLine())
				c.Print("Mood (great/good/okay/tired/stressed, optional): ")
				mood := strings.TrimSpace(c.ReadLine())

				result, err := client.CompleteHabit(id, date, note, mood)
				if err != nil {
					fail(err)
					return
				}
				c.Printf("'%s' completed: +%d points, streak %d.\n", title, result.PointsAwarded, result.Habit.Stats.CurrentStreak)
				for _, b := range result.NewBadges {
					c.Printf("  New badge unlocked: %s %s\n", b.Icon, b.Name)
				}
			},
		},
		{
			Name: "undo",
			Desc: "Reverse a habit completion",
			Func: func(c *ishell.Context) {
				id, title, ok := pickHabit(c)
				if !ok {
					return
				}
				c.Print("Date to undo (YYYY-MM-DD, empty for today): ")
				date := strings.TrimSpace(c.ReadLine())

				if err := client.UncompleteHabit(id, date); err != nil {
					fail(err)
					return
				}
				c.Printf("Completion removed from '%s'.\n", title)
			},
		},
		{
			Name: "pausehabit",
			Desc: "Deactivate a habit without losing its history",
			Func: func(c *ishell.Context) {
				id, title, ok := pickHabit(c)
				if !ok {
					return
				}
				if err := client.DeactivateHabit(id); err != nil {
					fail(err)
					return
				}
				c.Printf("Habit '%s' is now inactive. It no longer counts toward a perfect day.\n", title)
			},
		},
		{
			Name: "removehabit",
			Desc: "Delete a habit and its history",
			Func: func(c *ishell.Context) {
				id, title, ok := pickHabit(c)
				if !ok {
					return
				}
				if !promptYesNo(c, fmt.Sprintf("Delete '%s' and all its history?", title)) {
					return
				}
				if err := client.DeleteHabit(id); err != nil {
					fail(err)
					return
				}
				c.Printf("Habit '%s' deleted.\n", title)
			},
		},
		{
			Name: "tasks",
			Desc: "List your tasks",
			Func: func(c *ishell.Context) {
				tasks, err := client.ListTasks()
				if err != nil {
					fail(err)
					return
				}
				if len(tasks) == 0 {
					c.Println("You have no tasks yet. Add one with 'addtask'.")
					return
				}
				for _, task := range tasks {
					due := ""
					if task.DueDate != nil {
						due = " due " + task.DueDate.Format("2006-01-02")
					}
					c.Printf("  %s [%s/%s]%s\n", task.Title, task.Status, task.Priority, due)
					for _, sub := range task.Subtasks {
						mark := " "
						if sub.Completed {
							mark = "x"
						}
						c.Printf("    [%s] %s\n", mark, sub.Title)
					}
				}
			},
		},
		{
			Name: "addtask",
			Desc: "Create a new task",
			Func: func(c *ishell.Context) {
				title := promptNonEmpty(c, "Task title: ")
				c.Print("Description (optional): ")
				description := strings.TrimSpace(c.ReadLine())
				c.Print("Priority (low/medium/high/urgent, default medium): ")
				priority := strings.TrimSpace(c.ReadLine())
				c.Print("Category (optional): ")
				category := strings.TrimSpace(c.ReadLine())

				task, err := client.CreateTask(title, description, priority, category)
				if err != nil {
					fail(err)
					return
				}
				c.Printf("Task '%s' created.\n", task.Title)
			},
		},
		{
			Name: "start",
			Desc: "Move a task to in-progress",
			Func: func(c *ishell.Context) {
				id, title, ok := pickTask(c)
				if !ok {
					return
				}
				result, err := client.TransitionTask(id, "in-progress")
				if err != nil {
					fail(err)
					return
				}
				if result.PointsAwarded > 0 {
					c.Printf("'%s' started: +%d points.\n", title, result.PointsAwarded)
				} else {
					c.Printf("'%s' started.\n", title)
				}
			},
		},
		{
			Name: "finish",
			Desc: "Mark a task as completed",
			Func: func(c *ishell.Context) {
				id, title, ok := pickTask(c)
				if !ok {
					return
				}
				result, err := client.TransitionTask(id, "completed")
				if err != nil {
					fail(err)
					return
				}
				c.Printf("'%s' completed: +%d points.\n", title, result.PointsAwarded)
				for _, b := range result.NewBadges {
					c.Printf("  New badge unlocked: %s %s\n", b.Icon, b.Name)
				}
			},
		},
		{
			Name: "reopen",
			Desc: "Move a completed task back to todo",
			Func: func(c *ishell.Context) {
				id, title, ok := pickTask(c)
				if !ok {
					return
				}
				if _, err := client.TransitionTask(id, "todo"); err != nil {
					fail(err)
					return
				}
				c.Printf("'%s' reopened.\n", title)
			},
		},
		{
			Name: "removetask",
			Desc: "Delete a task",
			Func: func(c *ishell.Context) {
				id, title, ok := pickTask(c)
				if !ok {
					return
				}
				if err := client.DeleteTask(id); err != nil {
					fail(err)
					return
				}
				c.Printf("Task '%s' deleted.\n", title)
			},
		},
		{
			Name: "achievements",
			Desc: "Browse the achievement catalog",
			Func: func(c *ishell.Context) {
				catalog, err := client.ListAchievements()
				if err != nil {
					fail(err)
					return
				}
				for _, a := range catalog {
					c.Printf("  %s %s (%s): %s (+%d points)\n", a.Icon, a.Name, a.Rarity, a.Description, a.Reward.Points)
				}
			},
		},
		{
			Name: "confirm",
			Desc: "Confirm your account with the token sent to your email",
			Func: func(c *ishell.Context) {
				token := promptNonEmpty(c, "Enter the confirmation token from your email: ")
				if err := client.ConfirmEmail(token); err != nil {
					fail(err)
					return
				}
				c.Println("Account activated successfully.")
			},
		},
		{
			Name: "updatemyacc",
			Desc: "Update your account information",
			Func: func(c *ishell.Context) {
				var currentPassword, newUsername, newEmail, newPassword string

				for {
					c.Print("Enter Current Password: ")
					currentPassword = c.ReadPassword()
					if len(currentPassword) > 0 {
						break
					}
					c.Println("Current password cannot be empty.")
				}

				if promptYesNo(c, "Do you want to update your username?") {
					newUsername = promptNonEmpty(c, "Enter New Username: ")
				}

				if promptYesNo(c, "Do you want to update your email?") {
					for {
						c.Print("Enter New Email: ")
						newEmail = strings.TrimSpace(c.ReadLine())
						if utils.ValidateEmail(newEmail) {
							break
						}
						c.Println("New email is not valid.")
					}
				}

				if promptYesNo(c, "Do you want to update your password?") {
					for {
						c.Print("Enter New Password: ")
						newPassword = c.ReadPassword()
						if utils.ValidatePassword(newPassword) {
							c.Print("Confirm New Password: ")
							confirmPassword := c.ReadPassword()
							if newPassword == confirmPassword {
								break
							}
							c.Println()
							c.Println("Passwords do not match. Please try again.")
							c.Println()
						} else {
							c.Println()
							c.Println("Password must be at least 8 characters and contain both letters and numbers.")
							c.Println()
						}
					}
				}

				if err := client.UpdateUser(currentPassword, newUsername, newEmail, newPassword); err != nil {
					fail(err)
					return
				}
				c.Println("Account updated successfully.")
				if newEmail != "" {
					c.Println("A new confirmation token was sent to your email. Use 'confirm' to activate it.")
				}
			},
		},
		{
			Name: "signout",
			Desc: "Sign out from your account",
			Func: func(c *ishell.Context) {
				if err := client.SignOut(); err != nil {
					utils.PrintError(err.Error())
					return
				}
				c.Println("You are now signed out.")
				switchToGuest()
			},
		},
		{
			Name: "deletemyacc",
			Desc: "Delete your account",
			Func: func(c *ishell.Context) {
				if !promptYesNo(c, "Are you sure you want to delete your account?") {
					return
				}
				if err := client.DeleteUser(); err != nil {
					fail(err)
					return
				}
				c.Println("Account deleted successfully.")
				switchToGuest()
			},
		},
	}

	commonCommands = []Command{
		{
			Name: "exit",
			Desc: "Exit the application",
			Func: func(c *ishell.Context) {
				fmt.Println("Goodbye!")
				os.Exit(0)
			},
		},
	}

	// The help command is created separately to avoid the cyclic dependency.
	commonCommands = append(commonCommands, Command{
		Name: "help",
		Desc: "List available commands",
		Func: func(c *ishell.Context) {
			c.Println("Available commands:")
			if loggedIn {
				for _, command := range userCommands {
					c.Println("  |-- '" + command.Name + "' : " + command.Desc)
				}
			} else {
				for _, command := range guestCommands {
					c.Println("  |-- '" + command.Name + "' : " + command.Desc)
				}
			}
			for _, command := range commonCommands {
				c.Println("  |-- '" + command.Name + "' : " + command.Desc)
			}
			c.Println()
		},
	})
}

// addCommands registers the given commands on the shell.
func addCommands(shell *ishell.Shell, commands []Command) {
	for _, command := range commands {
		shell.AddCmd(&ishell.Cmd{
			Name: command.Name,
			Help: command.Desc,
			Func: command.Func,
		})
	}
}

// Execute prints the banner and runs the shell with the common and guest
// commands registered.
func Execute() {
	shell.Println()
	figure.NewFigure("Save Point", "basic", true).Print()
	shell.Println("Welcome to Save Point, the gamified habit and task tracker. Type 'help' to see a list of commands.")

	addCommands(shell, commonCommands)
	addCommands(shell, guestCommands)

	shell.Run()
}
