// Package services holds cross-cutting helpers shared by the scheduler and its
// collaborators: the error taxonomy used to classify failures and context
// annotation utilities for correlating log output.
package services
